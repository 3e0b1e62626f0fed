package controller

import (
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"
)

// fanoutStride separates the msg_id ranges of different destinations.
const fanoutStride = 10_000

// FanoutMsgID derives the msg_id of the broadcast of value to dest. It is a
// pure function of (dest, value), so a resend reuses the identical id and the
// matching broadcast_ok can be paired with its pending entry.
func FanoutMsgID(dest string, value int) int {
	return nodeOrdinal(dest)*fanoutStride + value
}

// nodeOrdinal extracts the numeric suffix of ids such as "n3". Ids without one
// fall back to a stable hash.
func nodeOrdinal(id string) int {
	digits := strings.TrimLeftFunc(id, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			return n
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32()%100_000) + 1
}

// fanoutTargets returns the direct neighbours of self, minus the node the value came from.
func fanoutTargets(neighbors []string, sender string) []string {
	targets := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		if n == sender {
			continue
		}
		targets = append(targets, n)
	}
	return targets
}
