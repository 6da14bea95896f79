// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"fmt"
	"strings"

	"newssense/internal/repository"
)

// FeedQueryBuilder turns an ArticleFilter into a WHERE clause.
// Active predicates are OR-ed; placeholders are numbered $1, $2, ...
type FeedQueryBuilder struct{}

// NewFeedQueryBuilder creates a new query builder instance.
func NewFeedQueryBuilder() *FeedQueryBuilder {
	return &FeedQueryBuilder{}
}

// BuildWhereClause returns "" and no args for an empty filter.
//
//   - topics:   topics ?| ARRAY[$1, $2]::text[]
//   - sources:  source IN ($3, $4)
//   - keywords: search_vector @@ websearch_to_tsquery('english', $5)
func (qb *FeedQueryBuilder) BuildWhereClause(filter repository.ArticleFilter) (clause string, args []interface{}) {
	var conditions []string
	paramIndex := 1

	placeholders := func(values []string) string {
		ph := make([]string, len(values))
		for i, v := range values {
			ph[i] = fmt.Sprintf("$%d", paramIndex)
			args = append(args, v)
			paramIndex++
		}
		return strings.Join(ph, ", ")
	}

	if len(filter.Topics) > 0 {
		conditions = append(conditions, fmt.Sprintf("topics ?| ARRAY[%s]::text[]", placeholders(filter.Topics)))
	}
	if len(filter.Sources) > 0 {
		conditions = append(conditions, fmt.Sprintf("source IN (%s)", placeholders(filter.Sources)))
	}
	if len(filter.Keywords) > 0 {
		conditions = append(conditions, fmt.Sprintf("search_vector @@ websearch_to_tsquery('english', $%d)", paramIndex))
		args = append(args, KeywordQuery(filter.Keywords))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " OR "), args
}

// KeywordQuery joins keywords into a websearch_to_tsquery expression that
// matches any of them. Multi-word keywords are quoted as phrases.
func KeywordQuery(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		words := strings.Fields(strings.ReplaceAll(k, `"`, " "))
		if len(words) == 0 {
			continue
		}
		k = strings.Join(words, " ")
		if len(words) > 1 {
			k = `"` + k + `"`
		}
		terms = append(terms, k)
	}
	return strings.Join(terms, " or ")
}
