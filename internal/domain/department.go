package domain

// Department is the closed classification target set, plus the UNKNOWN
// sentinel the classifier may return when it cannot decide.
type Department string

const (
	DepartmentIT         Department = "IT"
	DepartmentHR         Department = "HR"
	DepartmentFinance    Department = "FINANCE"
	DepartmentFacilities Department = "FACILITIES"
	DepartmentLegal      Department = "LEGAL"
	DepartmentSecurity   Department = "SECURITY"
	DepartmentGeneral    Department = "GENERAL"

	// DepartmentUnknown is never routed; the confidence policy maps it to the
	// configured fallback.
	DepartmentUnknown Department = "UNKNOWN"
)

var departments = map[Department]struct{}{
	DepartmentIT:         {},
	DepartmentHR:         {},
	DepartmentFinance:    {},
	DepartmentFacilities: {},
	DepartmentLegal:      {},
	DepartmentSecurity:   {},
	DepartmentGeneral:    {},
}

// Valid reports whether d is a routable member of the closed set.
func (d Department) Valid() bool {
	_, ok := departments[d]
	return ok
}

// Departments returns the routable closed set.
func Departments() []Department {
	return []Department{
		DepartmentIT,
		DepartmentHR,
		DepartmentFinance,
		DepartmentFacilities,
		DepartmentLegal,
		DepartmentSecurity,
		DepartmentGeneral,
	}
}
