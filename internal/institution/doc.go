// Package institution defines the records that flow through a collegenav run.
//
// An InputRecord names an institution to look up. A matched institution produces one
// InstitutionRecord (a "School" row) and zero or more ProgramRecords (the "Program" rows),
// joined by OPEID. The package also defines the error classes the orchestrator branches on.
package institution
