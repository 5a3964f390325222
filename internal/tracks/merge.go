package tracks

import (
	"fmt"
	"sort"
)

type mergeKey struct {
	frame int
	x, y  float64
}

// MergeSegmentation joins per-detection segmentation features onto a
// tracking table. Segmentation rows are identified by image file name
// (img_name) and centroid (cx, cy); the frame number is the position of
// img_name in the sorted list of distinct names. Rows are inner-joined on
// (t, x, y) == (frame, cx, cy), preserving tracking order. The join columns
// of the segmentation table are dropped; any other shared column names get
// "_x" (tracking) and "_y" (segmentation) suffixes.
func MergeSegmentation(tracking, seg *Table) (*Table, error) {
	if err := tracking.Require("t", "x", "y"); err != nil {
		return nil, fmt.Errorf("tracking: %w", err)
	}
	if err := seg.Require("img_name", "cx", "cy"); err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for r := range seg.Rows {
		if n := seg.Get(r, "img_name"); !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	frameOf := make(map[string]int, len(names))
	for i, n := range names {
		frameOf[n] = i
	}

	byKey := make(map[mergeKey][]int)
	for r := range seg.Rows {
		cx, err := seg.Float(r, "cx")
		if err != nil {
			return nil, fmt.Errorf("segmentation: %w", err)
		}
		cy, err := seg.Float(r, "cy")
		if err != nil {
			return nil, fmt.Errorf("segmentation: %w", err)
		}
		k := mergeKey{frame: frameOf[seg.Get(r, "img_name")], x: cx, y: cy}
		byKey[k] = append(byKey[k], r)
	}

	skip := map[string]bool{"cx": true, "cy": true, "frame": true}
	shared := make(map[string]bool)
	var segCols []int
	for i, h := range seg.Header {
		if skip[h] {
			continue
		}
		segCols = append(segCols, i)
		if tracking.Has(h) {
			shared[h] = true
		}
	}

	header := make([]string, 0, len(tracking.Header)+len(segCols))
	for _, h := range tracking.Header {
		if shared[h] {
			h += "_x"
		}
		header = append(header, h)
	}
	for _, i := range segCols {
		h := seg.Header[i]
		if shared[h] {
			h += "_y"
		}
		header = append(header, h)
	}
	out := New(header...)

	for r, row := range tracking.Rows {
		f, err := tracking.Int(r, "t")
		if err != nil {
			return nil, fmt.Errorf("tracking: %w", err)
		}
		x, err := tracking.Float(r, "x")
		if err != nil {
			return nil, fmt.Errorf("tracking: %w", err)
		}
		y, err := tracking.Float(r, "y")
		if err != nil {
			return nil, fmt.Errorf("tracking: %w", err)
		}
		for _, sr := range byKey[mergeKey{frame: f, x: x, y: y}] {
			merged := make([]string, 0, len(header))
			merged = append(merged, row...)
			for len(merged) < len(tracking.Header) {
				merged = append(merged, "")
			}
			for _, i := range segCols {
				merged = append(merged, seg.Rows[sr][i])
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out, nil
}
