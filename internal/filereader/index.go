package filereader

import "sort"

// KeyframeEntry is one lookup point in a KeyframeIndex (spec §3).
type KeyframeEntry struct {
	Timestamp  float64
	FileOffset int64
	FrameSize  int64
}

// KeyframeIndex supports binary-search seek to the nearest preceding
// keyframe. Entries are sorted strictly ascending by Timestamp and
// FileOffset (spec §3 invariant).
type KeyframeIndex struct {
	Entries  []KeyframeEntry
	Duration float64
}

// Floor returns the greatest entry with Timestamp <= target, and its index.
// Ok is false only when the index is empty.
func (k *KeyframeIndex) Floor(target float64) (entry KeyframeEntry, idx int, ok bool) {
	if len(k.Entries) == 0 {
		return KeyframeEntry{}, -1, false
	}
	i := sort.Search(len(k.Entries), func(i int) bool {
		return k.Entries[i].Timestamp > target
	})
	if i == 0 {
		return k.Entries[0], 0, true
	}
	return k.Entries[i-1], i - 1, true
}
