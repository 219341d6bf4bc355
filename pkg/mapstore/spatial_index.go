package mapstore

import (
	"sort"

	"lintang/mapmatchx/pkg/datastructure"

	"github.com/dhconnelly/rtreego"
	"github.com/tidwall/rtree"
)

// bboxPadding biar edge horizontal/vertikal tidak jadi rect degenerate.
const bboxPadding = 1e-9

type IndexKind string

const (
	IndexRtreego IndexKind = "rtreego"
	IndexTidwall IndexKind = "tidwall"
)

// SpatialIndex index bounding box item (edge/node) berdasarkan [lat, lon].
type SpatialIndex interface {
	Insert(id int64, box datastructure.BoundingBox)
	// Search id semua item yang bounding box-nya beririsan dengan box, urut naik.
	Search(box datastructure.BoundingBox) []int64
	Len() int
}

// searchBoxes gabungan hasil Search untuk setiap box, tanpa duplikat, urut naik.
func searchBoxes(idx SpatialIndex, boxes []datastructure.BoundingBox) []int64 {
	if len(boxes) == 1 {
		return idx.Search(boxes[0])
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, box := range boxes {
		for _, id := range idx.Search(box) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func newSpatialIndex(kind IndexKind) SpatialIndex {
	if kind == IndexTidwall {
		return &tidwallIndex{}
	}
	return newRtreegoIndex()
}

type rtreeItem struct {
	id   int64
	rect rtreego.Rect
}

func (it *rtreeItem) Bounds() rtreego.Rect {
	return it.rect
}

type rtreegoIndex struct {
	tree *rtreego.Rtree
}

func newRtreegoIndex() *rtreegoIndex {
	return &rtreegoIndex{tree: rtreego.NewTree(2, 25, 50)}
}

func toRect(box datastructure.BoundingBox) rtreego.Rect {
	rect, _ := rtreego.NewRectFromPoints(
		rtreego.Point{box.Min.Lat - bboxPadding, box.Min.Lon - bboxPadding},
		rtreego.Point{box.Max.Lat + bboxPadding, box.Max.Lon + bboxPadding},
	)
	return rect
}

func (r *rtreegoIndex) Insert(id int64, box datastructure.BoundingBox) {
	r.tree.Insert(&rtreeItem{id: id, rect: toRect(box)})
}

func (r *rtreegoIndex) Search(box datastructure.BoundingBox) []int64 {
	res := r.tree.SearchIntersect(toRect(box))
	ids := make([]int64, 0, len(res))
	for _, s := range res {
		ids = append(ids, s.(*rtreeItem).id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *rtreegoIndex) Len() int {
	return r.tree.Size()
}

type tidwallIndex struct {
	tree rtree.RTreeG[int64]
}

func (t *tidwallIndex) Insert(id int64, box datastructure.BoundingBox) {
	t.tree.Insert(
		[2]float64{box.Min.Lat - bboxPadding, box.Min.Lon - bboxPadding},
		[2]float64{box.Max.Lat + bboxPadding, box.Max.Lon + bboxPadding},
		id,
	)
}

func (t *tidwallIndex) Search(box datastructure.BoundingBox) []int64 {
	ids := []int64{}
	t.tree.Search(
		[2]float64{box.Min.Lat, box.Min.Lon},
		[2]float64{box.Max.Lat, box.Max.Lon},
		func(min, max [2]float64, id int64) bool {
			ids = append(ids, id)
			return true
		},
	)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *tidwallIndex) Len() int {
	return t.tree.Len()
}
