package grouper

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/saltybeagle/grouper/types"
)

var _ = Describe("registry", func() {
	root := types.RootSession()

	alice := types.NewPerson("alice")
	bob := types.NewPerson("bob")
	carol := types.NewPerson("carol")

	var (
		ctx    context.Context
		cancel context.CancelFunc
		reg    types.Registry
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	Describe("membership scenarios", func() {
		groupA := types.Group("root:A")
		groupB := types.Group("root:B")
		groupC := types.Group("root:C")

		BeforeEach(func() {
			var e error
			reg, e = New(ctx, WithLogger(logr.Discard()))
			Expect(e).To(Succeed())

			_, e = reg.AddStem(root, types.RootStem, "root", "")
			Expect(e).To(Succeed())
			for _, g := range []types.Group{groupA, groupB, groupC} {
				_, e := reg.AddGroup(root, types.Stem("root"), g.Extension(), "")
				Expect(e).To(Succeed())
			}
		})

		It("derives transitive membership through a member group", func() {
			Expect(reg.AddMember(root, groupA, groupB, types.DefaultList)).To(Succeed())
			Expect(reg.AddMember(root, groupB, alice, types.DefaultList)).To(Succeed())

			Expect(reg.ImmediateMembers(root, groupB, types.DefaultList)).To(HaveKey(types.Member(alice)))
			Expect(reg.EffectiveMembers(root, groupA, types.DefaultList)).To(HaveKey(types.Member(alice)))
			Expect(reg.ImmediateMembers(root, groupA, types.DefaultList)).NotTo(HaveKey(types.Member(alice)))

			Expect(reg.DeleteMember(root, groupA, groupB, types.DefaultList)).To(Succeed())
			Expect(reg.Members(root, groupA, types.DefaultList)).NotTo(HaveKey(types.Member(alice)))
		})

		It("rejects membership cycles", func() {
			Expect(reg.AddMember(root, groupA, groupB, types.DefaultList)).To(Succeed())
			Expect(reg.AddMember(root, groupB, groupC, types.DefaultList)).To(Succeed())

			e := reg.AddMember(root, groupC, groupA, types.DefaultList)
			Expect(e).To(MatchError(types.ErrMemberAdd))
			Expect(e).To(MatchError(types.ErrCycleDetected))
		})

		It("derives composite members and rejects immediate ones", func() {
			Expect(reg.AddComposite(root, groupC, types.OpUnion, groupA, groupB)).To(Succeed())
			Expect(reg.AddMember(root, groupA, bob, types.DefaultList)).To(Succeed())

			Expect(reg.EffectiveMembers(root, groupC, types.DefaultList)).To(HaveKey(types.Member(bob)))

			e := reg.AddMember(root, groupC, carol, types.DefaultList)
			Expect(e).To(MatchError(types.ErrMemberAdd))
			Expect(e).To(MatchError(types.ErrCompositeConflict))

			Expect(reg.DeleteComposite(root, groupC)).To(Succeed())
			Expect(reg.Members(root, groupC, types.DefaultList)).To(BeEmpty())
			Expect(reg.AddMember(root, groupC, carol, types.DefaultList)).To(Succeed())
		})

		It("tolerates duplicate adds only when asked", func() {
			Expect(reg.AddMember(root, groupA, alice, types.DefaultList)).To(Succeed())

			e := reg.AddMember(root, groupA, alice, types.DefaultList)
			Expect(e).To(MatchError(types.ErrMemberAdd))
			Expect(e).To(MatchError(types.ErrAlreadyExists))

			Expect(reg.AddMember(root, groupA, alice, types.DefaultList, types.IfAbsent())).To(Succeed())
		})
	})

	Describe("lifecycle hooks", func() {
		groupA := types.Group("root:A")

		var inserted int

		BeforeEach(func() {
			inserted = 0
			var e error
			reg, e = New(ctx,
				WithLogger(logr.Discard()),
				WithHook(types.HookMembership, types.PostInsert, func(types.Session, types.HookEvent) error {
					inserted++
					return nil
				}),
				WithHook(types.HookMembership, types.PreInsert, func(_ types.Session, ev types.HookEvent) error {
					if ev.Membership != nil && ev.Membership.Member == types.Member(carol) {
						return errors.New("carol is banned")
					}
					return nil
				}),
			)
			Expect(e).To(Succeed())

			_, e = reg.AddStem(root, types.RootStem, "root", "")
			Expect(e).To(Succeed())
			_, e = reg.AddGroup(root, types.Stem("root"), groupA.Extension(), "")
			Expect(e).To(Succeed())
		})

		It("skips hooks on an if-absent no-op", func() {
			Expect(reg.AddMember(root, groupA, alice, types.DefaultList)).To(Succeed())
			Expect(inserted).To(Equal(1))

			Expect(reg.AddMember(root, groupA, alice, types.DefaultList, types.IfAbsent())).To(Succeed())
			Expect(inserted).To(Equal(1))
		})

		It("lets a pre hook veto the mutation before any state changes", func() {
			e := reg.AddMember(root, groupA, carol, types.DefaultList)
			Expect(e).To(MatchError(types.ErrVetoed))

			Expect(reg.Members(root, groupA, types.DefaultList)).To(BeEmpty())
			Expect(inserted).To(BeZero())

			Expect(reg.AddMember(root, groupA, alice, types.DefaultList)).To(Succeed())
			Expect(inserted).To(Equal(1))
		})
	})

	Describe("privilege resolution", func() {
		uni := types.Stem("uni")
		staff := types.Group("uni:staff")
		wiki := types.Group("uni:wiki")

		ann := types.NewPerson("ann")
		annSess := types.NewSession(ann)

		BeforeEach(func() {
			var e error
			reg, e = New(ctx, WithLogger(logr.Discard()))
			Expect(e).To(Succeed())

			_, e = reg.AddStem(root, types.RootStem, "uni", "University")
			Expect(e).To(Succeed())
			for _, g := range []types.Group{staff, wiki} {
				_, e := reg.AddGroup(root, uni, g.Extension(), "")
				Expect(e).To(Succeed())
			}
		})

		It("inherits privileges through group membership, cache kept fresh", func() {
			Expect(reg.Grant(root, wiki, staff, types.Update)).To(Succeed())

			Expect(reg.AddMember(annSess, wiki, bob, types.DefaultList)).To(MatchError(types.ErrInsufficientPrivilege))

			Expect(reg.AddMember(root, staff, ann, types.DefaultList)).To(Succeed())
			Expect(reg.AddMember(annSess, wiki, bob, types.DefaultList)).To(Succeed())

			Expect(reg.DeleteMember(root, staff, ann, types.DefaultList)).To(Succeed())
			Expect(reg.DeleteMember(annSess, wiki, bob, types.DefaultList)).To(MatchError(types.ErrInsufficientPrivilege))
			Expect(reg.IsMember(root, wiki, bob, types.DefaultList)).To(BeTrue())
		})

		It("drops cached decisions when grants change", func() {
			Expect(reg.Revoke(root, wiki, types.EverySubject, types.Read|types.View)).To(Succeed())
			_, e := reg.Members(annSess, wiki, types.DefaultList)
			Expect(e).To(MatchError(types.ErrInsufficientPrivilege))

			Expect(reg.Grant(root, wiki, ann, types.Read)).To(Succeed())
			_, e = reg.Members(annSess, wiki, types.DefaultList)
			Expect(e).To(Succeed())

			Expect(reg.Revoke(root, wiki, ann, types.Read)).To(Succeed())
			_, e = reg.Members(annSess, wiki, types.DefaultList)
			Expect(e).To(MatchError(types.ErrInsufficientPrivilege))
		})

		It("scopes grants to the owner kind", func() {
			Expect(reg.Grant(root, wiki, ann, types.Create)).To(MatchError(types.ErrSchema))
			Expect(reg.Grant(root, uni, ann, types.Admin)).To(MatchError(types.ErrSchema))
			Expect(reg.Grant(root, wiki, ann, types.NoPrivilege)).To(MatchError(types.ErrSchema))
		})

		It("hands creators their default grants", func() {
			Expect(reg.Grant(root, uni, ann, types.StemAdmin)).To(Succeed())

			dept, e := reg.AddStem(annSess, uni, "dept", "")
			Expect(e).To(Succeed())
			Expect(reg.HasPrivilege(root, dept, ann, types.StemAdmin|types.Create)).To(BeTrue())

			team, e := reg.AddGroup(annSess, dept, "team", "")
			Expect(e).To(Succeed())
			Expect(reg.HasPrivilege(root, team, ann, types.Admin)).To(BeTrue())
			Expect(reg.HasPrivilege(root, team, bob, types.View)).To(BeTrue())
		})

		It("refuses stem and group creation without the naming privilege", func() {
			_, e := reg.AddStem(annSess, uni, "dept", "")
			Expect(e).To(MatchError(types.ErrInsufficientPrivilege))
			_, e = reg.AddGroup(annSess, uni, "team", "")
			Expect(e).To(MatchError(types.ErrInsufficientPrivilege))
		})

		It("expands group grantees in reverse privilege queries", func() {
			Expect(reg.Grant(root, wiki, staff, types.Update)).To(Succeed())
			Expect(reg.AddMember(root, staff, ann, types.DefaultList)).To(Succeed())

			Expect(reg.SubjectsWith(root, wiki, types.Update)).To(haveKeys(
				types.Member(staff), types.Member(ann),
			))
		})
	})

	Describe("group deletion cascade", func() {
		uni := types.Stem("uni")
		staff := types.Group("uni:staff")
		wiki := types.Group("uni:wiki")

		ann := types.NewPerson("ann")

		BeforeEach(func() {
			var e error
			reg, e = New(ctx, WithLogger(logr.Discard()))
			Expect(e).To(Succeed())

			_, e = reg.AddStem(root, types.RootStem, "uni", "")
			Expect(e).To(Succeed())
			for _, g := range []types.Group{staff, wiki} {
				_, e := reg.AddGroup(root, uni, g.Extension(), "")
				Expect(e).To(Succeed())
			}
			Expect(reg.AddMember(root, wiki, staff, types.DefaultList)).To(Succeed())
			Expect(reg.AddMember(root, staff, ann, types.DefaultList)).To(Succeed())
			Expect(reg.Grant(root, wiki, staff, types.Update)).To(Succeed())
		})

		It("unwires the group everywhere at once", func() {
			Expect(reg.HasPrivilege(root, wiki, ann, types.Update)).To(BeTrue())

			Expect(reg.DeleteGroup(root, staff)).To(Succeed())

			Expect(reg.GroupExists(root, staff)).To(BeFalse())
			Expect(reg.Members(root, wiki, types.DefaultList)).To(BeEmpty())
			Expect(reg.GroupsOf(root, ann)).To(BeEmpty())
			Expect(reg.HasPrivilege(root, wiki, ann, types.Update)).To(BeFalse())
		})
	})

	Describe("attributes and schema", func() {
		uni := types.Stem("uni")
		wiki := types.Group("uni:wiki")

		ann := types.NewPerson("ann")
		annSess := types.NewSession(ann)

		BeforeEach(func() {
			var e error
			reg, e = New(ctx,
				WithLogger(logr.Discard()),
				WithFields(types.Field{Name: "admins", Kind: types.FieldList, Read: types.Admin, Write: types.Admin}),
			)
			Expect(e).To(Succeed())

			_, e = reg.AddStem(root, types.RootStem, "uni", "")
			Expect(e).To(Succeed())
			_, e = reg.AddGroup(root, uni, wiki.Extension(), "Wiki Pages")
			Expect(e).To(Succeed())
		})

		It("stores the display name given at creation", func() {
			Expect(reg.Attribute(root, wiki, types.FieldDisplayName)).To(Equal("Wiki Pages"))
		})

		It("writes and reads attribute fields", func() {
			Expect(reg.SetAttribute(root, wiki, types.FieldDescription, "the campus wiki")).To(Succeed())
			Expect(reg.Attribute(root, wiki, types.FieldDescription)).To(Equal("the campus wiki"))
		})

		It("keeps lists and attributes apart", func() {
			Expect(reg.SetAttribute(root, wiki, types.DefaultList, "x")).To(MatchError(types.ErrSchema))

			e := reg.AddMember(root, wiki, ann, types.FieldDisplayName)
			Expect(e).To(MatchError(types.ErrMemberAdd))
			Expect(e).To(MatchError(types.ErrSchema))
		})

		It("carries custom list fields with their own privileges", func() {
			Expect(reg.AddMember(root, wiki, ann, "admins")).To(Succeed())
			Expect(reg.ImmediateMembers(root, wiki, "admins")).To(haveExactKeys(types.Member(ann)))

			_, e := reg.ImmediateMembers(annSess, wiki, "admins")
			Expect(e).To(MatchError(types.ErrInsufficientPrivilege))
		})

		It("refuses overriding built-in fields", func() {
			_, e := New(ctx,
				WithLogger(logr.Discard()),
				WithFields(types.Field{Name: types.DefaultList, Kind: types.FieldAttribute}),
			)
			Expect(e).To(MatchError(types.ErrSchema))
		})

		It("refuses field names carrying separator characters", func() {
			_, e := New(ctx,
				WithLogger(logr.Discard()),
				WithFields(types.Field{Name: "a#b", Kind: types.FieldList}),
			)
			Expect(e).To(MatchError(types.ErrInvalidName))
		})
	})

	Describe("stems", func() {
		uni := types.Stem("uni")
		wiki := types.Group("uni:wiki")

		bobSess := types.NewSession(bob)

		BeforeEach(func() {
			var e error
			reg, e = New(ctx, WithLogger(logr.Discard()))
			Expect(e).To(Succeed())

			_, e = reg.AddStem(root, types.RootStem, "uni", "")
			Expect(e).To(Succeed())
			_, e = reg.AddGroup(root, uni, wiki.Extension(), "")
			Expect(e).To(Succeed())
		})

		It("lists children and refuses deleting a populated stem", func() {
			Expect(reg.Stems(root, types.RootStem)).To(haveExactKeys(uni))
			Expect(reg.DeleteStem(root, uni)).To(MatchError(types.ErrSchema))

			Expect(reg.DeleteGroup(root, wiki)).To(Succeed())
			Expect(reg.DeleteStem(root, uni)).To(Succeed())
			Expect(reg.StemExists(root, uni)).To(BeFalse())
		})

		It("refuses extensions carrying separator characters", func() {
			_, e := reg.AddStem(root, uni, "a:b", "")
			Expect(e).To(MatchError(types.ErrInvalidName))
			_, e = reg.AddStem(root, uni, "a#b", "")
			Expect(e).To(MatchError(types.ErrInvalidName))
			_, e = reg.AddGroup(root, uni, "a#b", "")
			Expect(e).To(MatchError(types.ErrInvalidName))
		})

		It("hides groups the caller may not view", func() {
			Expect(reg.Groups(bobSess, uni)).To(haveExactKeys(wiki))

			Expect(reg.Revoke(root, wiki, types.EverySubject, types.Read|types.View)).To(Succeed())
			Expect(reg.Groups(bobSess, uni)).To(BeEmpty())
			Expect(reg.Groups(root, uni)).To(haveExactKeys(wiki))
		})
	})
})
