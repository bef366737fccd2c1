package grouper

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/saltybeagle/grouper/internal/testdata"
	"github.com/saltybeagle/grouper/types"
)

// course enrollment through the full registry stack, driven by the shared
// modular arithmetic fixtures
var _ = Describe("course enrollment", func() {
	root := types.RootSession()

	var (
		ctx    context.Context
		cancel context.CancelFunc
		reg    types.Registry
	)

	course := func(extension string) types.Group {
		return testdata.MathStem.ChildGroup(extension)
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())

		var e error
		reg, e = New(ctx, WithLogger(logr.Discard()))
		Expect(e).To(Succeed())

		_, e = reg.AddStem(root, types.RootStem, testdata.MathStem.Extension(), "Mathematics")
		Expect(e).To(Succeed())
		for _, c := range testdata.Courses() {
			_, e := reg.AddGroup(root, testdata.MathStem, c.Extension(), "")
			Expect(e).To(Succeed())
		}
		for student, courses := range testdata.StudentCourses {
			for _, c := range courses {
				Expect(reg.AddMember(root, c, student, types.DefaultList)).To(Succeed())
			}
		}
	})

	AfterEach(func() {
		cancel()
	})

	It("lists every course group under the stem", func() {
		Expect(reg.Groups(root, testdata.MathStem)).To(haveExactKeys(func() []interface{} {
			is := make([]interface{}, 0)
			for _, c := range testdata.Courses() {
				is = append(is, c)
			}
			return is
		}()...))
	})

	Context("querying courses of a student", func() {
		for student, courses := range testdata.StudentCourses {
			student, courses := student, courses
			It(fmt.Sprintf("knows the courses of %s", student.ID), func() {
				Expect(reg.GroupsOf(root, student)).To(haveExactKeys(func() []interface{} {
					is := make([]interface{}, 0, len(courses))
					for _, c := range courses {
						is = append(is, c)
					}
					return is
				}()...))
			})
		}
	})

	Context("querying students of a course", func() {
		for c, students := range testdata.CourseStudents {
			c, students := c, students
			It(fmt.Sprintf("knows the students of %s", c), func() {
				Expect(reg.Members(root, c, types.DefaultList)).To(haveExactKeys(func() []interface{} {
					is := make([]interface{}, 0, len(students))
					for _, student := range students {
						is = append(is, types.Member(student))
					}
					return is
				}()...))
			})
		}
	})

	Context("checking enrollment", func() {
		for student, courses := range testdata.StudentCourses {
			for _, c := range courses {
				student, c := student, c
				It(fmt.Sprintf("knows %s sits in %s", student.ID, c), func() {
					Expect(reg.IsMember(root, c, student, types.DefaultList)).To(BeTrue())
				})
			}
		}

		for _, tc := range []struct {
			student int
			course  string
		}{
			{student: 1, course: "2_0"},
			{student: 4, course: "3_0"},
			{student: 4, course: "3_2"},
			{student: 6, course: "2_1"},
			{student: 6, course: "3_1"},
			{student: 6, course: "3_2"},
		} {
			tc := tc
			It(fmt.Sprintf("knows %d does not sit in %s", tc.student, tc.course), func() {
				Expect(reg.IsMember(root, course(tc.course), testdata.Students[tc.student], types.DefaultList)).To(BeFalse())
			})
		}
	})

	DescribeTable("a student drops a course",
		func(student int, extension string) {
			sub := testdata.Students[student]
			c := course(extension)
			Expect(reg.DeleteMember(root, c, sub, types.DefaultList)).To(Succeed())
			Expect(reg.GroupsOf(root, sub)).NotTo(HaveKey(c))
			Expect(reg.Members(root, c, types.DefaultList)).NotTo(HaveKey(types.Member(sub)))
			Expect(reg.IsMember(root, c, sub, types.DefaultList)).To(BeFalse())
		},
		Entry("student 1 drops 3_1", 1, "3_1"),
		Entry("student 7 drops 5_2", 7, "5_2"),
		Entry("student 6 drops 3_0", 6, "3_0"),
	)

	Describe("removing a course group", func() {
		BeforeEach(func() {
			Expect(reg.DeleteGroup(root, course("3_2"))).To(Succeed())
		})

		It("disappears from the stem", func() {
			Expect(reg.GroupExists(root, course("3_2"))).To(BeFalse())
			Expect(reg.Groups(root, testdata.MathStem)).NotTo(HaveKey(course("3_2")))
		})

		DescribeTable("its students lose the course",
			func(student int) {
				Expect(reg.GroupsOf(root, testdata.Students[student])).NotTo(HaveKey(course("3_2")))
			},
			Entry("student 2", 2),
			Entry("student 5", 5),
			Entry("student 8", 8),
		)
	})

	Describe("with course-to-course groupings", func() {
		even := course("even")
		divisible := course("divisible")

		BeforeEach(func() {
			for _, c := range []types.Group{even, divisible} {
				_, e := reg.AddGroup(root, testdata.MathStem, c.Extension(), "")
				Expect(e).To(Succeed())
			}
			Expect(reg.AddMember(root, even, course("2_0"), types.DefaultList)).To(Succeed())
			Expect(reg.AddMember(root, divisible, course("2_0"), types.DefaultList)).To(Succeed())
			Expect(reg.AddMember(root, divisible, course("3_0"), types.DefaultList)).To(Succeed())
			Expect(reg.AddMember(root, divisible, course("5_0"), types.DefaultList)).To(Succeed())
		})

		It("keeps member groups immediate and their students effective", func() {
			Expect(reg.ImmediateMembers(root, divisible, types.DefaultList)).To(haveExactKeys(
				types.Member(course("2_0")), types.Member(course("3_0")), types.Member(course("5_0")),
			))
			Expect(reg.EffectiveMembers(root, divisible, types.DefaultList)).To(haveKeys(
				types.Member(testdata.Students[0]), types.Member(testdata.Students[6]), types.Member(testdata.Students[9]),
			))
		})

		Context("even numbers", func() {
			for _, i := range []int{0, 2, 4, 6, 8} {
				i := i
				Specify(fmt.Sprintf("%d is even", i), func() {
					Expect(reg.IsMember(root, even, testdata.Students[i], types.DefaultList)).To(BeTrue())
				})
			}
		})

		Context("divisible numbers", func() {
			for _, i := range []int{0, 2, 3, 4, 5, 6, 8, 9} {
				i := i
				Specify(fmt.Sprintf("%d is divisible", i), func() {
					Expect(reg.IsMember(root, divisible, testdata.Students[i], types.DefaultList)).To(BeTrue())
				})
			}
		})

		Context("indivisible numbers", func() {
			for _, i := range []int{1, 7} {
				i := i
				Specify(fmt.Sprintf("%d is not divisible", i), func() {
					Expect(reg.IsMember(root, divisible, testdata.Students[i], types.DefaultList)).To(BeFalse())
				})
			}
		})
	})
})
