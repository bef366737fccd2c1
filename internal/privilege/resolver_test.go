package privilege

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/saltybeagle/grouper/internal/closure"
	"github.com/saltybeagle/grouper/types"
)

var (
	staff   = types.Group("uni:staff")
	faculty = types.Group("uni:faculty")
	dept    = types.Stem("uni")

	ann = types.NewPerson("ann")
	ben = types.NewPerson("ben")
)

var _ = Describe("grant store", func() {
	var grants Grants

	BeforeEach(func() {
		grants = NewVolatile()
	})

	It("accumulates grants per owner and grantee", func() {
		Expect(grants.Grant(staff, ann, types.Read)).To(Succeed())
		Expect(grants.Grant(staff, ann, types.Update)).To(Succeed())

		Expect(grants.Granted(staff, ann)).To(Equal(types.Read | types.Update))
	})

	It("revokes partially and prunes empty sets", func() {
		Expect(grants.Grant(staff, ann, types.Read|types.Update)).To(Succeed())
		Expect(grants.Revoke(staff, ann, types.Update)).To(Succeed())
		Expect(grants.Granted(staff, ann)).To(Equal(types.Read))

		Expect(grants.Revoke(staff, ann, types.Read)).To(Succeed())
		Expect(grants.GrantsOn(staff)).To(BeEmpty())
		Expect(grants.GrantsFor(ann)).To(BeEmpty())
	})

	It("refuses to revoke what was never granted", func() {
		Expect(grants.Revoke(staff, ann, types.Read)).To(MatchError(types.ErrNotFound))
	})

	It("drops every grant of a removed owner", func() {
		Expect(grants.Grant(staff, ann, types.Read)).To(Succeed())
		Expect(grants.Grant(staff, ben, types.View)).To(Succeed())
		Expect(grants.Grant(faculty, ann, types.Admin)).To(Succeed())

		Expect(grants.RemoveOwner(staff)).To(Succeed())
		Expect(grants.GrantsOn(staff)).To(BeEmpty())
		Expect(grants.GrantsFor(ann)).To(HaveLen(1))
	})

	It("drops every grant a removed grantee holds", func() {
		Expect(grants.Grant(staff, ann, types.Read)).To(Succeed())
		Expect(grants.Grant(faculty, ann, types.Admin)).To(Succeed())

		Expect(grants.RemoveGrantee(ann)).To(Succeed())
		Expect(grants.GrantsFor(ann)).To(BeEmpty())
		Expect(grants.GrantsOn(staff)).To(BeEmpty())
	})
})

var _ = Describe("resolver", func() {
	var (
		grants  Grants
		members closure.Closure
		r       Resolver
	)

	BeforeEach(func() {
		grants = NewVolatile()
		members = closure.NewVolatile()
		r = NewResolver(grants, members)
	})

	It("resolves direct grants", func() {
		Expect(grants.Grant(staff, ann, types.Read)).To(Succeed())

		Expect(r.Has(staff, ann, types.Read)).To(BeTrue())
		Expect(r.Has(staff, ann, types.Update)).To(BeFalse())
		Expect(r.Has(staff, ben, types.Read)).To(BeFalse())
	})

	It("lets admins do everything on their group", func() {
		Expect(grants.Grant(staff, ann, types.Admin)).To(Succeed())

		Expect(r.Has(staff, ann, types.Read|types.Update|types.View)).To(BeTrue())
		Expect(r.Has(staff, ann, types.StemAdmin)).To(BeFalse())
	})

	It("lets stem admins create under their stem", func() {
		Expect(grants.Grant(dept, ann, types.StemAdmin)).To(Succeed())

		Expect(r.Has(dept, ann, types.Create)).To(BeTrue())
	})

	It("extends wildcard grants to every subject", func() {
		Expect(grants.Grant(staff, types.EverySubject, types.View)).To(Succeed())

		Expect(r.Has(staff, ann, types.View)).To(BeTrue())
		Expect(r.Has(staff, ben, types.View)).To(BeTrue())
	})

	It("always lets the system subject through", func() {
		Expect(r.Has(staff, types.SystemSubject, types.Admin)).To(BeTrue())
	})

	It("inherits grants through group membership", func() {
		Expect(grants.Grant(staff, faculty, types.Update)).To(Succeed())
		_, e := members.Join(faculty, types.DefaultList, ann)
		Expect(e).To(Succeed())

		Expect(r.Has(staff, ann, types.Update)).To(BeTrue())
		Expect(r.Has(staff, ben, types.Update)).To(BeFalse())
	})

	It("inherits grants through nested group membership", func() {
		inner := types.Group("uni:faculty:math")
		Expect(grants.Grant(staff, faculty, types.Update)).To(Succeed())
		_, e := members.Join(faculty, types.DefaultList, inner)
		Expect(e).To(Succeed())
		_, e = members.Join(inner, types.DefaultList, ann)
		Expect(e).To(Succeed())

		Expect(r.Has(staff, ann, types.Update)).To(BeTrue())
	})

	It("folds every source into PrivilegesOf", func() {
		Expect(grants.Grant(staff, ann, types.Optin)).To(Succeed())
		Expect(grants.Grant(staff, types.EverySubject, types.View)).To(Succeed())
		Expect(grants.Grant(staff, faculty, types.Update)).To(Succeed())
		_, e := members.Join(faculty, types.DefaultList, ann)
		Expect(e).To(Succeed())

		Expect(r.PrivilegesOf(staff, ann)).To(Equal(types.Optin | types.View | types.Update))
	})

	It("expands group grantees in reverse queries", func() {
		Expect(grants.Grant(staff, faculty, types.Update)).To(Succeed())
		Expect(grants.Grant(staff, ben, types.Update)).To(Succeed())
		_, e := members.Join(faculty, types.DefaultList, ann)
		Expect(e).To(Succeed())

		holders, e := r.SubjectsWith(staff, types.Update)
		Expect(e).To(Succeed())
		Expect(holders).To(SatisfyAll(
			HaveKey(types.Member(faculty)),
			HaveKey(types.Member(ann)),
			HaveKey(types.Member(ben)),
		))
	})
})
