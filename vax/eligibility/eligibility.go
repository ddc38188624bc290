package eligibility

import (
	"sort"
	"time"

	"github.com/schoolvax/vax-app/vax/models"
)

// Children start reception in the academic year after they turn four, so a
// child in year group N during academic year A was born in academic year A-5-N.
const receptionOffset = 5

// BirthAcademicYear returns the academic year (starting 1 September) a date of birth falls in.
func BirthAcademicYear(dob time.Time) int {
	return AcademicYear(dob)
}

// AcademicYear returns the academic year containing t.
func AcademicYear(t time.Time) int {
	if t.Month() >= time.September {
		return t.Year()
	}
	return t.Year() - 1
}

// YearGroup returns the school year of a child born in birthAcademicYear during academicYear.
func YearGroup(birthAcademicYear, academicYear int) int {
	return academicYear - receptionOffset - birthAcademicYear
}

// Index answers which programmes a birth academic year is eligible for.
// It is built once per run and is read only afterwards.
type Index struct {
	academicYear int
	byBirthYear  map[int][]int64
	birthYears   map[int64][]int
}

func NewIndex(programmes []models.Programme, academicYear int) *Index {
	idx := &Index{
		academicYear: academicYear,
		byBirthYear:  make(map[int][]int64),
		birthYears:   make(map[int64][]int),
	}

	for _, p := range programmes {
		seen := make(map[int]struct{}, len(p.YearGroups))
		for _, yg := range p.YearGroups {
			by := academicYear - receptionOffset - yg
			if _, ok := seen[by]; ok {
				continue
			}
			seen[by] = struct{}{}
			idx.byBirthYear[by] = append(idx.byBirthYear[by], p.ID)
			idx.birthYears[p.ID] = append(idx.birthYears[p.ID], by)
		}
	}

	for by := range idx.byBirthYear {
		ids := idx.byBirthYear[by]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	for id := range idx.birthYears {
		years := idx.birthYears[id]
		sort.Ints(years)
	}

	return idx
}

func (idx *Index) AcademicYear() int {
	return idx.academicYear
}

// EligibleProgrammes returns the ids of programmes offered to children born
// in birthAcademicYear, in ascending order. The slice must not be modified.
func (idx *Index) EligibleProgrammes(birthAcademicYear int) []int64 {
	return idx.byBirthYear[birthAcademicYear]
}

func (idx *Index) IsEligible(programmeID int64, birthAcademicYear int) bool {
	for _, id := range idx.byBirthYear[birthAcademicYear] {
		if id == programmeID {
			return true
		}
	}
	return false
}

// BirthAcademicYears returns the birth academic years programmeID applies to.
func (idx *Index) BirthAcademicYears(programmeID int64) []int {
	return idx.birthYears[programmeID]
}
