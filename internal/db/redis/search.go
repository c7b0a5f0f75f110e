package redis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/refbase-io/refbase/internal/db"
	"github.com/refbase-io/refbase/internal/domain"
)

const scoreField = "__vector_score"

// SearchKNN runs a KNN vector search over the index and returns entries in
// ascending distance order, with distance mapped to similarity.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	query := fmt.Sprintf("%s=>[KNN %d @vector $BLOB AS %s]", buildFilter(q.Filter), q.K, scoreField)

	args := []string{
		q.IndexName, query,
		"PARAMS", "2", "BLOB", rueidis.BinaryString(db.VectorToBytes(q.Vector)),
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
	}
	if len(q.ReturnFields) > 0 {
		ret := append([]string{scoreField}, q.ReturnFields...)
		args = append(args, "RETURN", strconv.Itoa(len(ret)))
		args = append(args, ret...)
	}
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	resp, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(resp)
}

// parseKNNResult decodes the RESP2 FT.SEARCH reply:
// [total, key1, [field, value, ...], key2, [...], ...].
func parseKNNResult(resp []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(resp) == 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("empty reply")}
	}

	total, err := resp[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}

	result := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(resp); i += 2 {
		key, err := resp[i].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse key: %w", err)}
		}
		fields, err := resp[i+1].AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse fields for %q: %w", key, err)}
		}

		entry := db.SearchEntry{Key: key, Fields: fields}
		if raw, ok := fields[scoreField]; ok {
			dist, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse score for %q: %w", key, err)}
			}
			// Cosine distance to similarity. Distances above 1.0 clamp to 0.
			entry.Score = math.Max(0, 1.0-dist)
			delete(fields, scoreField)
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

// buildFilter renders a domain vector filter as a RediSearch predicate.
// An empty filter matches everything.
func buildFilter(f domain.VectorFilter) string {
	if f.IsEmpty() {
		return "*"
	}

	fields := make([]string, 0, len(f.Tags))
	for field := range f.Tags {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("@%s:{%s}", field, escapeTag(f.Tags[field])))
	}
	if f.CreatedFrom > 0 || f.CreatedTo > 0 {
		from, to := "-inf", "+inf"
		if f.CreatedFrom > 0 {
			from = strconv.FormatInt(f.CreatedFrom, 10)
		}
		if f.CreatedTo > 0 {
			to = strconv.FormatInt(f.CreatedTo, 10)
		}
		parts = append(parts, fmt.Sprintf("@created_at:[%s %s]", from, to))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"[", "\\[", "]", "\\]", "\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;",
	"!", "\\!", "@", "\\@", "#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
	"=", "\\=", "~", "\\~", " ", "\\ ", "|", "\\|", "/", "\\/",
)

func escapeTag(v string) string {
	return tagEscaper.Replace(v)
}
