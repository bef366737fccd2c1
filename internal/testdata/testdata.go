// Package testdata holds deterministic fixtures shared between test suites:
// ten students spread over modular arithmetic course groups under one stem.
package testdata

import (
	"strconv"

	"github.com/saltybeagle/grouper/types"
)

func init() {
	loadStudentsAndCourses()
}

// MathStem is the stem all fixture groups live in
const MathStem = types.Stem("math")

var (
	// Students are ten subjects named by their index
	Students []types.Subject

	// StudentCourses lists the course groups each student sits in: the
	// residue groups of their index mod 2, 3, and 5
	StudentCourses map[types.Subject][]types.Group

	// CourseStudents is the reverse: every student a course group holds
	CourseStudents map[types.Group][]types.Subject
)

func loadStudentsAndCourses() {
	Students = make([]types.Subject, 0, 10)
	StudentCourses = make(map[types.Subject][]types.Group)
	CourseStudents = make(map[types.Group][]types.Subject)

	for i := 0; i < 10; i++ {
		student := types.NewPerson(strconv.Itoa(i))
		mod2 := MathStem.ChildGroup("2_" + strconv.Itoa(i%2))
		mod3 := MathStem.ChildGroup("3_" + strconv.Itoa(i%3))
		mod5 := MathStem.ChildGroup("5_" + strconv.Itoa(i%5))

		Students = append(Students, student)
		StudentCourses[student] = []types.Group{mod2, mod3, mod5}
		for _, course := range []types.Group{mod2, mod3, mod5} {
			CourseStudents[course] = append(CourseStudents[course], student)
		}
	}
}

// Courses returns every fixture course group
func Courses() []types.Group {
	out := make([]types.Group, 0, len(CourseStudents))
	for course := range CourseStudents {
		out = append(out, course)
	}
	return out
}
