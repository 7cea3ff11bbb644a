package broker

import (
	"encoding/json"
	"strconv"
)

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// scoreStr formats a float score for ZREMRANGEBYSCORE's inclusive range
// arguments ("score..=score" per spec §6.4).
func scoreStr(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
