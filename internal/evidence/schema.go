// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// IdentifierField is the first field of most schemas; it carries the study
// acronym, author, year and PubMed ID.
const IdentifierField = "acronym_author_year"

// Fixed-arity field schemas. Tables are matched on cell count alone, so two
// layouts with the same number of columns map onto the same names.
var (
	schema5 = []string{
		IdentifierField, "type_design_size", "patient_population",
		"endpoint_results", "summary",
	}
	schema5Alt = []string{
		"author", "type_of_study/years_of_recruitment", "number_of_patients",
		"short_term_results_PCI_vs_CABG", "long_term_results_PCI_vs_CABG",
	}
	schema6 = []string{
		IdentifierField, "type_design_size", "patient_population",
		"intervention_comparator", "endpoint_results", "limitations_adverse_events",
	}
	schema6Alt = []string{
		IdentifierField, "type_design", "size", "inclusion_exclusion_criteria",
		"primary_endpoint", "results_pValues",
	}
	schema7 = []string{
		IdentifierField, "type_design_size", "patient_population",
		"HBPM", "Daytime_ABPM", "24-h_ABPM", "Results/Comments",
	}
	schema7Alt = []string{
		IdentifierField, "type_design", "size", "inclusion_exclusion_criteria",
		"primary_endpoint", "results_pValues", "summary_conclusions",
	}
	schema8 = []string{
		IdentifierField, "type_design", "size", "inclusion_exclusion_criteria",
		"classification_system", "primary_endpoint", "results_pValues", "summary_conclusions",
	}
	schema11 = []string{
		"study", "location", "number_of_patients", "average_age", "female_patients",
		"CAD", "enrollment_period", "combined_death/MI/CVA_HR_95%_CI",
		"repeat_revascularization_HR_95%_CI", "MACCE_HR_95%_CI", "follow-up_in_months",
	}
	schema13 = []string{
		"study_author_year", "aim", "type_design", "size", "inclusion_criteria",
		"exclusion_criteria", "primary_endpoint", "secondary_endpoint", "results",
		"pValues", "OR_HR_RR", "study_limitations", "comments",
	}
	schema14 = []string{
		"trial", "no.", "age", "femal", "CAD", "acute_death", "acute_Q_Wave_MI",
		"late_death", "late_Q_Wave_MI", "late_angina", "repeat_revascularization",
		"primary_endpoint", "primary_endpoint_CABG", "follow-up_years",
	}
)

// Schema returns the field names for a row of n cells in a version v
// supplement. Version 1 and the later versions disagree on the 5, 6 and 7
// field layouts; the larger layouts are shared.
func Schema(v types.SupplementVersion, n int) ([]string, bool) {
	switch n {
	case 5:
		if v == types.SupplementV1 {
			return schema5, true
		}
		return schema5Alt, true
	case 6:
		if v == types.SupplementV1 {
			return schema6, true
		}
		return schema6Alt, true
	case 7:
		if v == types.SupplementV1 {
			return schema7, true
		}
		return schema7Alt, true
	case 8:
		return schema8, true
	case 11:
		return schema11, true
	case 13:
		return schema13, true
	case 14:
		return schema14, true
	}
	return nil, false
}

// LiveSchema returns the detected column names of t with the first renamed
// to the identifier field.
func LiveSchema(t types.EvidenceTable) []string {
	names := t.ColumnNames()
	if len(names) > 0 {
		names[0] = IdentifierField
	}
	return names
}

// MapRow zips the cells of row onto field names. Version 4 supplements use
// the table's live header; the others choose a fixed schema by cell count
// and report a SchemaMismatchError when none has that arity. The returned
// confidence records which path was taken.
func MapRow(t types.EvidenceTable, row types.EvidenceRow, v types.SupplementVersion) (map[string]string, types.MappingConfidence, error) {
	var (
		names      []string
		confidence types.MappingConfidence
	)
	if v == types.SupplementV4 {
		names = LiveSchema(t)
		confidence = types.ConfidenceLiveHeader
	} else {
		var ok bool
		names, ok = Schema(v, len(row.Cells))
		if !ok {
			return nil, "", &types.SchemaMismatchError{
				Position: row.Position,
				Cells:    len(row.Cells),
				Text:     strings.Join(row.Cells, " | "),
			}
		}
		confidence = types.ConfidenceCountOnly
		if len(t.Columns) == len(row.Cells) {
			confidence = types.ConfidenceHeaderAgrees
		}
	}

	fields := make(map[string]string, len(names))
	for i := 0; i < len(names) && i < len(row.Cells); i++ {
		fields[names[i]] = row.Cells[i]
	}
	return fields, confidence, nil
}
