package datastructure

import (
	"errors"

	"golang.org/x/exp/constraints"
)

var ErrHeapEmpty = errors.New("heap is empty")

type PriorityQueueNode[T constraints.Integer] struct {
	Rank float64
	// Hops jumlah edge yang dilewati, tie-breaker kalau Rank sama.
	Hops int
	Item T
}

// less urutan total: Rank, lalu Hops, lalu Item. Bikin hasil ekstraksi deterministik.
func (n PriorityQueueNode[T]) less(o PriorityQueueNode[T]) bool {
	if n.Rank != o.Rank {
		return n.Rank < o.Rank
	}
	if n.Hops != o.Hops {
		return n.Hops < o.Hops
	}
	return n.Item < o.Item
}

// MinHeap binary heap priorityqueue dengan posisi item buat DecreaseKey.
type MinHeap[T constraints.Integer] struct {
	heap []PriorityQueueNode[T]
	pos  map[T]int
}

func NewMinHeap[T constraints.Integer]() *MinHeap[T] {
	return &MinHeap[T]{
		heap: make([]PriorityQueueNode[T], 0),
		pos:  make(map[T]int),
	}
}

func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / 2
}

func (h *MinHeap[T]) leftChild(index int) int {
	return 2*index + 1
}

func (h *MinHeap[T]) rightChild(index int) int {
	return 2*index + 2
}

func (h *MinHeap[T]) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.pos[h.heap[i].Item] = i
	h.pos[h.heap[j].Item] = j
}

// heapifyUp swap dengan parent selama parent lebih besar. O(logN).
func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.heap[index].less(h.heap[h.parent(index)]) {
		p := h.parent(index)
		h.swap(index, p)
		index = p
	}
}

// heapifyDown swap dengan child terkecil selama child lebih kecil. O(logN).
func (h *MinHeap[T]) heapifyDown(index int) {
	for {
		smallest := index
		left := h.leftChild(index)
		right := h.rightChild(index)

		if left < len(h.heap) && h.heap[left].less(h.heap[smallest]) {
			smallest = left
		}
		if right < len(h.heap) && h.heap[right].less(h.heap[smallest]) {
			smallest = right
		}
		if smallest == index {
			return
		}
		h.swap(index, smallest)
		index = smallest
	}
}

func (h *MinHeap[T]) isEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

// Reset kosongkan heap tanpa buang kapasitas, biar bisa dipakai ulang antar search.
func (h *MinHeap[T]) Reset() {
	h.heap = h.heap[:0]
	clear(h.pos)
}

func (h *MinHeap[T]) GetMin() (PriorityQueueNode[T], error) {
	if h.isEmpty() {
		return PriorityQueueNode[T]{}, ErrHeapEmpty
	}
	return h.heap[0], nil
}

func (h *MinHeap[T]) Insert(key PriorityQueueNode[T]) {
	h.heap = append(h.heap, key)
	index := h.Size() - 1
	h.pos[key.Item] = index
	h.heapifyUp(index)
}

// ExtractMin pop item dengan urutan terkecil. O(logN).
func (h *MinHeap[T]) ExtractMin() (PriorityQueueNode[T], error) {
	if h.isEmpty() {
		return PriorityQueueNode[T]{}, ErrHeapEmpty
	}
	root := h.heap[0]
	last := h.Size() - 1
	h.heap[0] = h.heap[last]
	h.heap = h.heap[:last]
	delete(h.pos, root.Item)
	if !h.isEmpty() {
		h.pos[h.heap[0].Item] = 0
		h.heapifyDown(0)
	}
	return root, nil
}

func (h *MinHeap[T]) Contains(item T) bool {
	_, ok := h.pos[item]
	return ok
}

// DecreaseKey update Rank & Hops item yang sudah ada di heap. O(logN).
func (h *MinHeap[T]) DecreaseKey(item PriorityQueueNode[T]) error {
	idx, ok := h.pos[item.Item]
	if !ok || idx >= h.Size() || h.heap[idx].less(item) {
		return errors.New("invalid index or new value")
	}
	h.heap[idx] = item
	h.heapifyUp(idx)
	return nil
}

func (h *MinHeap[T]) GetItem(item T) (PriorityQueueNode[T], bool) {
	idx, ok := h.pos[item]
	if !ok {
		return PriorityQueueNode[T]{}, false
	}
	return h.heap[idx], true
}
