// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// Spatial kernels shared by the convolution, pooling, and flatten layers.
// All of them operate on NHWC-layout data and are dtype-generic because the
// sketched nonlinearities hand complex feature maps to downstream spatial
// layers.

func fromFloat[T tensor.Element](v float64) T {
	var t T
	switch p := any(&t).(type) {
	case *float64:
		*p = v
	case *complex128:
		*p = complex(v, 0)
	}
	return t
}

// convAxis concatenates, per pixel, the channel vectors of a size-k sliding
// window along the W axis: block 0 is the pixel itself, and each offset
// contributes a left-shifted and a right-shifted block. Out-of-range taps
// stay zero, which matches zero padding at the borders.
func convAxis[T tensor.Element](src []T, n, h, w, c, k int) []T {
	oc := c * k
	out := make([]T, n*h*w*oc)
	for b := 0; b < n; b++ {
		for i := 0; i < h; i++ {
			rowSrc := ((b*h + i) * w) * c
			rowDst := ((b*h + i) * w) * oc
			for j := 0; j < w; j++ {
				copy(out[rowDst+j*oc:rowDst+j*oc+c], src[rowSrc+j*c:rowSrc+(j+1)*c])
			}
			blk := 1
			for off := 1; off < min((k+1)/2, w); off++ {
				for j := 0; j < w-off; j++ {
					copy(out[rowDst+j*oc+blk*c:rowDst+j*oc+(blk+1)*c],
						src[rowSrc+(j+off)*c:rowSrc+(j+off+1)*c])
				}
				blk++
				for j := off; j < w; j++ {
					copy(out[rowDst+j*oc+blk*c:rowDst+j*oc+(blk+1)*c],
						src[rowSrc+(j-off)*c:rowSrc+(j-off+1)*c])
				}
				blk++
			}
		}
	}
	return out
}

// transposeHW swaps the two spatial axes of an NHWC block.
func transposeHW[T tensor.Element](src []T, n, h, w, c int) []T {
	out := make([]T, len(src))
	for b := 0; b < n; b++ {
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				s := (((b*h)+i)*w + j) * c
				d := (((b*w)+j)*h + i) * c
				copy(out[d:d+c], src[s:s+c])
			}
		}
	}
	return out
}

// convFeat2D applies convAxis separably along W then H, growing the channel
// dimension by k per axis (k² total).
func convFeat2D[T tensor.Element](src []T, n, h, w, c, k int) []T {
	alongW := convAxis(src, n, h, w, c, k)
	swapped := transposeHW(alongW, n, h, w, c*k)
	alongH := convAxis(swapped, n, w, h, c*k, k)
	return transposeHW(alongH, n, w, h, c*k*k)
}

// convPatches builds the per-pixel receptive-field concatenation of a rank-4
// feature map for a square filter of size filterSize.
func convPatches(m tensor.Matrix, filterSize int) (tensor.Matrix, error) {
	s := m.Shape()
	if len(s) != 4 {
		return nil, fmt.Errorf("features: convolution requires NHWC input, got shape %v", s)
	}
	n, h, w, c := s[0], s[1], s[2], s[3]
	outShape := tensor.Shape{n, h, w, c * filterSize * filterSize}
	switch t := m.(type) {
	case *tensor.Dense:
		return tensor.FromSlice(convFeat2D(t.Data(), n, h, w, c, filterSize), outShape)
	case *tensor.CDense:
		out := tensor.NewCDense(outShape)
		copy(out.Data(), convFeat2D(t.Data(), n, h, w, c, filterSize))
		return out, nil
	}
	return nil, fmt.Errorf("features: unsupported matrix type %T", m)
}

// poolGeometry resolves the output extent and leading pad of a strided
// window along one spatial axis.
func poolGeometry(extent, window, stride int, same bool) (out, padLead int, err error) {
	if same {
		out = (extent + stride - 1) / stride
		pad := (out-1)*stride + window - extent
		if pad < 0 {
			pad = 0
		}
		return out, pad / 2, nil
	}
	if extent < window {
		return 0, 0, fmt.Errorf("features: pooling window %d exceeds spatial extent %d", window, extent)
	}
	return (extent-window)/stride + 1, 0, nil
}

// avgPool2D averages each window of a rank-4 feature map. With
// normalizeEdges, partially out-of-bounds windows divide by the in-bounds
// tap count instead of the full window area.
func avgPool2D[T tensor.Element](src []T, n, h, w, c, window, stride int, same, normalizeEdges bool) ([]T, int, int, error) {
	outH, padTop, err := poolGeometry(h, window, stride, same)
	if err != nil {
		return nil, 0, 0, err
	}
	outW, padLeft, err := poolGeometry(w, window, stride, same)
	if err != nil {
		return nil, 0, 0, err
	}

	out := make([]T, n*outH*outW*c)
	full := fromFloat[T](1 / float64(window*window))
	for b := 0; b < n; b++ {
		for oi := 0; oi < outH; oi++ {
			i0 := oi*stride - padTop
			for oj := 0; oj < outW; oj++ {
				j0 := oj*stride - padLeft
				dst := out[(((b*outH)+oi)*outW+oj)*c : (((b*outH)+oi)*outW+oj+1)*c]
				count := 0
				for i := max(i0, 0); i < min(i0+window, h); i++ {
					for j := max(j0, 0); j < min(j0+window, w); j++ {
						s := (((b*h)+i)*w + j) * c
						for ch := 0; ch < c; ch++ {
							dst[ch] += src[s+ch]
						}
						count++
					}
				}
				scale := full
				if normalizeEdges && count > 0 {
					scale = fromFloat[T](1 / float64(count))
				}
				for ch := 0; ch < c; ch++ {
					dst[ch] *= scale
				}
			}
		}
	}
	return out, outH, outW, nil
}

// poolSpatial applies avgPool2D to a rank-4 real or complex feature map.
func poolSpatial(m tensor.Matrix, window, stride int, same, normalizeEdges bool) (tensor.Matrix, error) {
	s := m.Shape()
	if len(s) != 4 {
		return nil, fmt.Errorf("features: pooling requires NHWC input, got shape %v", s)
	}
	n, h, w, c := s[0], s[1], s[2], s[3]
	switch t := m.(type) {
	case *tensor.Dense:
		data, outH, outW, err := avgPool2D(t.Data(), n, h, w, c, window, stride, same, normalizeEdges)
		if err != nil {
			return nil, err
		}
		return tensor.FromSlice(data, tensor.Shape{n, outH, outW, c})
	case *tensor.CDense:
		data, outH, outW, err := avgPool2D(t.Data(), n, h, w, c, window, stride, same, normalizeEdges)
		if err != nil {
			return nil, err
		}
		out := tensor.NewCDense(tensor.Shape{n, outH, outW, c})
		copy(out.Data(), data)
		return out, nil
	}
	return nil, fmt.Errorf("features: unsupported matrix type %T", m)
}
