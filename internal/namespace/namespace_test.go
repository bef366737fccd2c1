package namespace

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/saltybeagle/grouper/types"
)

var _ = Describe("namespace", func() {
	var ns Namespace

	uni := types.Stem("uni")
	math := types.Stem("uni:math")
	algebra := types.Group("uni:math:algebra")

	BeforeEach(func() {
		ns = NewVolatile()
	})

	It("starts with just the root stem", func() {
		Expect(ns.StemExists(types.RootStem)).To(BeTrue())
		Expect(ns.AllStems()).To(ConsistOf(types.RootStem))
		Expect(ns.AllGroups()).To(BeEmpty())
	})

	It("grows stems only under existing parents", func() {
		Expect(ns.AddStem(uni)).To(Succeed())
		Expect(ns.AddStem(math)).To(Succeed())

		Expect(ns.StemExists(math)).To(BeTrue())
		Expect(ns.Children(uni)).To(ConsistOf(math))

		Expect(ns.AddStem(types.Stem("other:deep"))).To(MatchError(types.ErrNotFound))
	})

	It("refuses duplicate stems", func() {
		Expect(ns.AddStem(uni)).To(Succeed())
		Expect(ns.AddStem(uni)).To(MatchError(types.ErrAlreadyExists))
	})

	It("keeps the root stem forever", func() {
		Expect(ns.RemoveStem(types.RootStem)).To(MatchError(types.ErrSchema))
	})

	It("refuses to remove a stem that still holds anything", func() {
		Expect(ns.AddStem(uni)).To(Succeed())
		Expect(ns.AddStem(math)).To(Succeed())
		Expect(ns.RemoveStem(uni)).To(MatchError(types.ErrSchema))

		Expect(ns.AddGroup(algebra)).To(Succeed())
		Expect(ns.RemoveStem(math)).To(MatchError(types.ErrSchema))

		Expect(ns.RemoveGroup(algebra)).To(Succeed())
		Expect(ns.RemoveStem(math)).To(Succeed())
		Expect(ns.RemoveStem(uni)).To(Succeed())
		Expect(ns.StemExists(uni)).To(BeFalse())
	})

	It("registers groups under their parent stem", func() {
		Expect(ns.AddStem(uni)).To(Succeed())
		Expect(ns.AddStem(math)).To(Succeed())
		Expect(ns.AddGroup(algebra)).To(Succeed())

		Expect(ns.GroupExists(algebra)).To(BeTrue())
		Expect(ns.Groups(math)).To(ConsistOf(algebra))
		Expect(ns.Groups(uni)).To(BeEmpty())
		Expect(ns.AllGroups()).To(ConsistOf(algebra))
	})

	It("refuses groups under missing stems and duplicates", func() {
		Expect(ns.AddGroup(algebra)).To(MatchError(types.ErrNotFound))

		Expect(ns.AddStem(uni)).To(Succeed())
		Expect(ns.AddStem(math)).To(Succeed())
		Expect(ns.AddGroup(algebra)).To(Succeed())
		Expect(ns.AddGroup(algebra)).To(MatchError(types.ErrAlreadyExists))
	})

	It("holds group attributes until the group goes", func() {
		Expect(ns.AddStem(uni)).To(Succeed())
		Expect(ns.AddStem(math)).To(Succeed())
		Expect(ns.AddGroup(algebra)).To(Succeed())

		Expect(ns.SetAttribute(algebra, "displayName", "Algebra I")).To(Succeed())
		Expect(ns.SetAttribute(algebra, "description", "intro course")).To(Succeed())
		Expect(ns.Attribute(algebra, "displayName")).To(Equal("Algebra I"))
		Expect(ns.Attribute(algebra, "unset")).To(Equal(""))
		Expect(ns.Attributes(algebra)).To(Equal(map[string]string{
			"displayName": "Algebra I",
			"description": "intro course",
		}))

		Expect(ns.RemoveGroup(algebra)).To(Succeed())
		Expect(ns.AddGroup(algebra)).To(Succeed())
		Expect(ns.Attributes(algebra)).To(BeEmpty())
	})

	It("refuses attributes on missing groups", func() {
		Expect(ns.SetAttribute(algebra, "displayName", "x")).To(MatchError(types.ErrNotFound))
		_, e := ns.Attribute(algebra, "displayName")
		Expect(e).To(MatchError(types.ErrNotFound))
	})

	It("holds stem attributes", func() {
		Expect(ns.AddStem(uni)).To(Succeed())
		Expect(ns.SetStemAttribute(uni, "displayName", "University")).To(Succeed())
		Expect(ns.StemAttribute(uni, "displayName")).To(Equal("University"))
		Expect(ns.StemAttribute(uni, "unset")).To(Equal(""))

		Expect(ns.SetStemAttribute(math, "displayName", "x")).To(MatchError(types.ErrNotFound))
	})
})
