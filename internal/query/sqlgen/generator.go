package sqlgen

import (
	"fmt"
	"strings"

	"cvintake/internal/core"
)

const baseSelect = `SELECT DISTINCT
	c.id,
	c.first_name,
	c.last_name,
	c.email,
	c.phone,
	c.address_city,
	c.address_region,
	c.availability_status,
	c.created_at,
	c.updated_at
FROM candidates c`

const baseWhere = "WHERE c.is_active = true"

// sortColumns maps a FilterTree sort field to the SQL expression the
// generator supports for it.
var sortColumns = map[string]string{
	"experience_years": "(SELECT COALESCE(SUM(duration_months), 0) FROM candidate_experience WHERE candidate_id = c.id)",
	"created_at":        "c.created_at",
	"updated_at":        "c.updated_at",
	"first_name":        "c.first_name",
	"last_name":         "c.last_name",
	"location":          "c.address_city",
}

// Generator builds parameterized PostgreSQL queries from a FilterTree,
// with no LLM involvement.
type Generator struct {
	params     []any
	tablesUsed map[string]bool
	warnings   []string
}

// Generate produces the SQLQuery for one FilterTree. Deterministic and
// side-effect free beyond the returned value.
func Generate(tree core.FilterTree) core.SQLQuery {
	g := &Generator{tablesUsed: map[string]bool{"candidates": true}}

	var whereClauses []string
	var summaries []string
	for _, cond := range tree.Filters {
		clause := g.buildFilterClause(cond)
		if clause == "" {
			continue
		}
		whereClauses = append(whereClauses, clause)
		summaries = append(summaries, g.describeFilter(cond))
	}

	query := baseSelect + "\n" + baseWhere
	if len(whereClauses) > 0 {
		query += "\n  AND " + strings.Join(whereClauses, "\n  AND ")
	}
	query += "\n" + g.buildOrderBy(tree)
	query += "\n" + g.buildLimit(tree)

	summary := "No filters"
	if len(summaries) > 0 {
		summary = strings.Join(summaries, " | ")
	}

	return core.SQLQuery{Text: query, Params: g.params, FilterSummary: summary}
}

func (g *Generator) nextParam(value any) string {
	g.params = append(g.params, value)
	return fmt.Sprintf("$%d", len(g.params))
}

func (g *Generator) buildFilterClause(cond core.FilterCondition) string {
	if cond.Value == nil {
		return ""
	}
	mapping, ok := fieldDictionary[cond.Field]
	if !ok {
		g.warnings = append(g.warnings, "unknown field: "+cond.Field)
		return ""
	}

	switch mapping.join {
	case joinNone:
		return g.buildDirectClause(mapping, cond.Operator, cond.Value)
	case joinSubquery:
		return g.buildSubqueryClause(cond.Field, cond.Operator, cond.Value)
	case joinComputed:
		return g.buildComputedClause(cond.Field, cond.Operator, cond.Value)
	case joinExists:
		return g.buildExistsClause(cond.Field, mapping, cond.Operator, cond.Value)
	default:
		return g.buildTaxonomyClause(cond.Field, mapping, cond.Operator, cond.Value)
	}
}

func (g *Generator) buildDirectClause(mapping fieldMapping, op core.FilterOperator, value any) string {
	col := "c." + mapping.column
	switch op {
	case core.OpEq:
		return fmt.Sprintf("%s = %s", col, g.nextParam(value))
	case core.OpNe:
		return fmt.Sprintf("%s != %s", col, g.nextParam(value))
	case core.OpContains:
		return fmt.Sprintf("%s ILIKE %s", col, g.nextParam(fmt.Sprintf("%%%v%%", value)))
	case core.OpGt:
		return fmt.Sprintf("%s > %s", col, g.nextParam(value))
	case core.OpGte:
		return fmt.Sprintf("%s >= %s", col, g.nextParam(value))
	case core.OpLt:
		return fmt.Sprintf("%s < %s", col, g.nextParam(value))
	case core.OpLte:
		return fmt.Sprintf("%s <= %s", col, g.nextParam(value))
	case core.OpIn:
		return fmt.Sprintf("%s = ANY(%s)", col, g.nextParam(asSlice(value)))
	case core.OpNotIn:
		return fmt.Sprintf("%s != ALL(%s)", col, g.nextParam(asSlice(value)))
	case core.OpIsNull:
		return col + " IS NULL"
	case core.OpIsNotNull:
		return col + " IS NOT NULL"
	}
	g.warnings = append(g.warnings, fmt.Sprintf("unsupported operator %s for %s", op, mapping.column))
	return ""
}

// buildSubqueryClause handles experience_years: total months across all
// experience rows, divided to years.
func (g *Generator) buildSubqueryClause(field string, op core.FilterOperator, value any) string {
	if field != "experience_years" {
		g.warnings = append(g.warnings, "unknown subquery field: "+field)
		return ""
	}
	g.tablesUsed["candidate_experience"] = true
	const subquery = `(
	SELECT COALESCE(SUM(duration_months), 0) / 12.0
	FROM candidate_experience
	WHERE candidate_id = c.id
)`
	switch op {
	case core.OpGte:
		return fmt.Sprintf("%s >= %s", subquery, g.nextParam(value))
	case core.OpGt:
		return fmt.Sprintf("%s > %s", subquery, g.nextParam(value))
	case core.OpLte:
		return fmt.Sprintf("%s <= %s", subquery, g.nextParam(value))
	case core.OpLt:
		return fmt.Sprintf("%s < %s", subquery, g.nextParam(value))
	case core.OpEq:
		return fmt.Sprintf("%s = %s", subquery, g.nextParam(value))
	case core.OpBetween:
		lo, hi, ok := asPair(value)
		if !ok {
			break
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", subquery, g.nextParam(lo), g.nextParam(hi))
	}
	g.warnings = append(g.warnings, "unsupported operator for experience_years: "+string(op))
	return ""
}

// buildComputedClause handles age, derived from date_of_birth.
func (g *Generator) buildComputedClause(field string, op core.FilterOperator, value any) string {
	if field != "age" {
		g.warnings = append(g.warnings, "unknown computed field: "+field)
		return ""
	}
	const ageExpr = "EXTRACT(YEAR FROM AGE(c.date_of_birth))"
	switch op {
	case core.OpGte:
		return fmt.Sprintf("%s >= %s", ageExpr, g.nextParam(value))
	case core.OpLte:
		return fmt.Sprintf("%s <= %s", ageExpr, g.nextParam(value))
	case core.OpBetween:
		lo, hi, ok := asPair(value)
		if !ok {
			break
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", ageExpr, g.nextParam(lo), g.nextParam(hi))
	}
	g.warnings = append(g.warnings, "unsupported operator for age: "+string(op))
	return ""
}

func (g *Generator) buildExistsClause(field string, mapping fieldMapping, op core.FilterOperator, value any) string {
	table := mapping.table
	g.tablesUsed[table] = true
	values := asSlice(value)

	switch field {
	case "education_level":
		var translated []string
		seen := map[string]bool{}
		for _, v := range values {
			for _, t := range translateEducationLevel(fmt.Sprintf("%v", v)) {
				if !seen[t] {
					seen[t] = true
					translated = append(translated, t)
				}
			}
		}
		values = toAny(translated)
	case "language_codes":
		translated := make([]string, len(values))
		for i, v := range values {
			translated[i] = translateLanguageCode(fmt.Sprintf("%v", v))
		}
		values = toAny(translated)
	}

	columnExpr := mapping.column
	if field == "education_level" {
		columnExpr = mapping.column + "::text"
	}

	switch op {
	case core.OpAny, core.OpEq, core.OpIn:
		return fmt.Sprintf("EXISTS (\n\tSELECT 1 FROM %s\n\tWHERE candidate_id = c.id\n\t  AND %s = ANY(%s)\n)", table, columnExpr, g.nextParam(values))
	case core.OpAll:
		p := g.nextParam(values)
		count := g.nextParam(len(values))
		return fmt.Sprintf("(\n\tSELECT COUNT(DISTINCT %s)\n\tFROM %s\n\tWHERE candidate_id = c.id\n\t  AND %s = ANY(%s)\n) = %s", columnExpr, table, columnExpr, p, count)
	case core.OpContains:
		var search any
		if len(values) > 0 {
			search = values[0]
		}
		return fmt.Sprintf("EXISTS (\n\tSELECT 1 FROM %s\n\tWHERE candidate_id = c.id\n\t  AND %s ILIKE %s\n)", table, mapping.column, g.nextParam(fmt.Sprintf("%%%v%%", search)))
	}
	g.warnings = append(g.warnings, fmt.Sprintf("unsupported operator for %s: %s", field, op))
	return ""
}

func (g *Generator) buildTaxonomyClause(field string, mapping fieldMapping, op core.FilterOperator, value any) string {
	alias, ok := taxonomyAliases[field]
	if !ok {
		g.warnings = append(g.warnings, "unknown taxonomy field: "+field)
		return ""
	}
	g.tablesUsed[mapping.table] = true
	g.tablesUsed[alias.taxonomyTable] = true

	values := asSlice(value)
	nameCondition := func(placeholder string) string {
		if alias.taxonomyTable == "software_taxonomy" {
			return fmt.Sprintf("(%s.name ILIKE %s OR %s.canonical_id ILIKE %s)", alias.taxonomyAlias, placeholder, alias.taxonomyAlias, placeholder)
		}
		return fmt.Sprintf("(%s.name_en ILIKE %s OR %s.name_el ILIKE %s OR %s.canonical_id ILIKE %s)",
			alias.taxonomyAlias, placeholder, alias.taxonomyAlias, placeholder, alias.taxonomyAlias, placeholder)
	}

	if op == core.OpContains && len(values) == 1 {
		p := g.nextParam(fmt.Sprintf("%%%v%%", values[0]))
		nameCond := nameCondition(p)
		if field == "role_ids" {
			jp := g.nextParam(fmt.Sprintf("%%%v%%", values[0]))
			return fmt.Sprintf("EXISTS (\n\tSELECT 1 FROM %s %s\n\tLEFT JOIN %s %s ON %s.%s = %s.id\n\tWHERE %s.candidate_id = c.id\n\t  AND (%s OR %s.job_title ILIKE %s OR %s.job_title_normalized ILIKE %s)\n)",
				mapping.table, alias.tableAlias, alias.taxonomyTable, alias.taxonomyAlias, alias.tableAlias, alias.joinColumn, alias.taxonomyAlias,
				alias.tableAlias, nameCond, alias.tableAlias, jp, alias.tableAlias, jp)
		}
		return fmt.Sprintf("EXISTS (\n\tSELECT 1 FROM %s %s\n\tJOIN %s %s ON %s.%s = %s.id\n\tWHERE %s.candidate_id = c.id\n\t  AND %s\n)",
			mapping.table, alias.tableAlias, alias.taxonomyTable, alias.taxonomyAlias, alias.tableAlias, alias.joinColumn, alias.taxonomyAlias, alias.tableAlias, nameCond)
	}

	switch op {
	case core.OpAny, core.OpContains, core.OpIn, core.OpEq:
		var conds, jobTitleConds []string
		for _, v := range values {
			p := g.nextParam(fmt.Sprintf("%%%v%%", v))
			conds = append(conds, nameCondition(p))
			if field == "role_ids" {
				jp := g.nextParam(fmt.Sprintf("%%%v%%", v))
				jobTitleConds = append(jobTitleConds, fmt.Sprintf("(%s.job_title ILIKE %s OR %s.job_title_normalized ILIKE %s)", alias.tableAlias, jp, alias.tableAlias, jp))
			}
		}
		orClause := strings.Join(conds, " OR ")
		if field == "role_ids" && len(jobTitleConds) > 0 {
			jobTitleOr := strings.Join(jobTitleConds, " OR ")
			return fmt.Sprintf("EXISTS (\n\tSELECT 1 FROM %s %s\n\tLEFT JOIN %s %s ON %s.%s = %s.id\n\tWHERE %s.candidate_id = c.id\n\t  AND ((%s) OR (%s))\n)",
				mapping.table, alias.tableAlias, alias.taxonomyTable, alias.taxonomyAlias, alias.tableAlias, alias.joinColumn, alias.taxonomyAlias,
				alias.tableAlias, orClause, jobTitleOr)
		}
		return fmt.Sprintf("EXISTS (\n\tSELECT 1 FROM %s %s\n\tJOIN %s %s ON %s.%s = %s.id\n\tWHERE %s.candidate_id = c.id\n\t  AND (%s)\n)",
			mapping.table, alias.tableAlias, alias.taxonomyTable, alias.taxonomyAlias, alias.tableAlias, alias.joinColumn, alias.taxonomyAlias, alias.tableAlias, orClause)
	case core.OpAll:
		p := g.nextParam(values)
		count := g.nextParam(len(values))
		return fmt.Sprintf("(\n\tSELECT COUNT(DISTINCT %s.canonical_id)\n\tFROM %s %s\n\tJOIN %s %s ON %s.%s = %s.id\n\tWHERE %s.candidate_id = c.id\n\t  AND %s.canonical_id = ANY(%s)\n) = %s",
			alias.taxonomyAlias, mapping.table, alias.tableAlias, alias.taxonomyTable, alias.taxonomyAlias, alias.tableAlias, alias.joinColumn, alias.taxonomyAlias,
			alias.tableAlias, alias.taxonomyAlias, p, count)
	}
	g.warnings = append(g.warnings, fmt.Sprintf("unsupported operator for %s: %s", field, op))
	return ""
}

func (g *Generator) buildOrderBy(tree core.FilterTree) string {
	if tree.Sort == nil {
		return "ORDER BY c.updated_at DESC"
	}
	direction := "DESC"
	if tree.Sort.Direction == core.SortAsc {
		direction = "ASC"
	}
	col, ok := sortColumns[tree.Sort.Field]
	if !ok {
		col = "c.updated_at"
	}
	return fmt.Sprintf("ORDER BY %s %s", col, direction)
}

// buildLimit clamps the limit to core.MaxLLMSuggestedLimit
// unconditionally: whatever the translator or caller suggested, the
// generator never emits more than 100 rows.
func (g *Generator) buildLimit(tree core.FilterTree) string {
	limit := tree.Limit
	if limit <= 0 || limit > core.MaxLLMSuggestedLimit {
		limit = core.MaxLLMSuggestedLimit
	}
	limitPlaceholder := g.nextParam(limit)
	if tree.Offset > 0 {
		return fmt.Sprintf("LIMIT %s OFFSET %s", limitPlaceholder, g.nextParam(tree.Offset))
	}
	return "LIMIT " + limitPlaceholder
}

func (g *Generator) describeFilter(cond core.FilterCondition) string {
	desc, ok := opDescription[cond.Operator]
	if !ok {
		desc = string(cond.Operator)
	}
	valueStr := fmt.Sprintf("%v", cond.Value)
	if values, ok := cond.Value.([]any); ok {
		n := len(values)
		shown := values
		if n > 3 {
			shown = values[:3]
		}
		parts := make([]string, len(shown))
		for i, v := range shown {
			parts[i] = fmt.Sprintf("%v", v)
		}
		valueStr = strings.Join(parts, ", ")
		if n > 3 {
			valueStr += fmt.Sprintf(" (+%d more)", n-3)
		}
	}
	return fmt.Sprintf("%s %s %s", cond.Field, desc, valueStr)
}

func asSlice(value any) []any {
	if values, ok := value.([]any); ok {
		return values
	}
	return []any{value}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func asPair(value any) (any, any, bool) {
	values, ok := value.([]any)
	if !ok || len(values) < 2 {
		return nil, nil, false
	}
	return values[0], values[1], true
}
