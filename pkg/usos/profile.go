package usos

// Staff status values as reported by the provider.
const (
	StaffStatusStudent          = 0
	StaffStatusNonTeachingStaff = 1
	StaffStatusTeachingStaff    = 2
)

// Profile holds the fixed set of attributes fetched for the
// authenticated user.
type Profile struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	StudentStatus *int   `json:"student_status"`
	StaffStatus   *int   `json:"staff_status"`
	Email         string `json:"email"`
	HasEmail      bool   `json:"has_email"`
	ProfileURL    string `json:"profile_url"`
}

// staffRoles maps provider staff_status values to the elevated role.
// The mapping is an explicit table: 1 (non-teaching staff) and
// 2 (teaching staff) are elevated, 0 (student) is not.
var staffRoles = map[int]bool{
	StaffStatusStudent:          false,
	StaffStatusNonTeachingStaff: true,
	StaffStatusTeachingStaff:    true,
}

// IsStaff reports whether the profile maps to the elevated role.
// An absent staff_status means not staff.
func (p *Profile) IsStaff() bool {
	if p.StaffStatus == nil {
		return false
	}
	return staffRoles[*p.StaffStatus]
}
