package dto

// ImportRow is one data row of an uploaded student sheet, keyed by slugged header.
type ImportRow struct {
	Number int
	Values map[string]string
}

// SkippedRow reports a row that was not applied and why.
type SkippedRow struct {
	Row    int               `json:"row"`
	Errors []string          `json:"errors"`
	Values map[string]string `json:"values"`
}

// ImportResult summarises a student import batch.
type ImportResult struct {
	Success          bool         `json:"success"`
	Message          string       `json:"message,omitempty"`
	RowsProcessed    int          `json:"rows_processed"`
	SkippedRows      []SkippedRow `json:"skipped_rows"`
	SchoolsCreated   int          `json:"schools_created"`
	StudentsCreated  int          `json:"students_created"`
	StudentsUpdated  int          `json:"students_updated"`
	EmployeesCreated int          `json:"employees_created"`
	EmployeesUpdated int          `json:"employees_updated"`
	EmployeesDeleted int          `json:"employees_deleted"`
}

// Skip records row as skipped with the given messages.
func (r *ImportResult) Skip(row ImportRow, errs ...string) {
	r.SkippedRows = append(r.SkippedRows, SkippedRow{Row: row.Number, Errors: errs, Values: row.Values})
}
