package qdrant

import "github.com/yungbote/rfp-analysis-backend/internal/clauseindex"

const payloadRFPIDKey = "rfp_id"

// searchFilter is the subset of Qdrant's filter grammar clause search needs.
type searchFilter struct {
	Must []fieldCondition `json:"must,omitempty"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value string `json:"value"`
}

// buildFilter returns nil when f places no restriction, so the request omits "filter".
func buildFilter(f clauseindex.Filter) *searchFilter {
	if f.RFPID == nil {
		return nil
	}
	return &searchFilter{Must: []fieldCondition{{
		Key:   payloadRFPIDKey,
		Match: matchValue{Value: f.RFPID.String()},
	}}}
}
