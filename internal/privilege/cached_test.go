package privilege

import (
	"sync/atomic"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/saltybeagle/grouper/internal/closure"
	"github.com/saltybeagle/grouper/types"
)

// countingResolver counts how often decisions reach the inner resolver
type countingResolver struct {
	Resolver
	calls int32
}

func (c *countingResolver) PrivilegesOf(o types.Owner, m types.Member) (types.Privilege, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.Resolver.PrivilegesOf(o, m)
}

// interposingResolver runs a callback between computing a decision and
// handing it back, standing in for a mutation racing a cache fill
type interposingResolver struct {
	Resolver
	during func()
}

func (r *interposingResolver) PrivilegesOf(o types.Owner, m types.Member) (types.Privilege, error) {
	held, e := r.Resolver.PrivilegesOf(o, m)
	if r.during != nil {
		r.during()
	}
	return held, e
}

var _ = Describe("cached resolver", func() {
	var (
		grants   Grants
		counting *countingResolver
		cached   CachedResolver
	)

	BeforeEach(func() {
		grants = NewVolatile()
		counting = &countingResolver{Resolver: NewResolver(grants, closure.NewVolatile())}
		cached = NewCached(counting, logr.Discard())
	})

	It("memoizes decisions", func() {
		Expect(grants.Grant(staff, ann, types.Read)).To(Succeed())

		Expect(cached.Has(staff, ann, types.Read)).To(BeTrue())
		Expect(cached.Has(staff, ann, types.Read)).To(BeTrue())
		Expect(cached.PrivilegesOf(staff, ann)).To(Equal(types.Read))

		Expect(atomic.LoadInt32(&counting.calls)).To(Equal(int32(1)))
	})

	It("serves stale answers until invalidated", func() {
		Expect(grants.Grant(staff, ann, types.Read)).To(Succeed())
		Expect(cached.Has(staff, ann, types.Read)).To(BeTrue())

		Expect(grants.Revoke(staff, ann, types.Read)).To(Succeed())
		Expect(cached.Has(staff, ann, types.Read)).To(BeTrue())

		cached.InvalidateOwner(staff)
		Expect(cached.Has(staff, ann, types.Read)).To(BeFalse())
	})

	It("invalidates by member", func() {
		Expect(grants.Grant(staff, ann, types.Read)).To(Succeed())
		Expect(grants.Grant(faculty, ann, types.View)).To(Succeed())
		Expect(cached.Has(staff, ann, types.Read)).To(BeTrue())
		Expect(cached.Has(faculty, ann, types.View)).To(BeTrue())

		Expect(grants.Revoke(staff, ann, types.Read)).To(Succeed())
		Expect(grants.Revoke(faculty, ann, types.View)).To(Succeed())

		cached.InvalidateMember(ann)
		Expect(cached.Has(staff, ann, types.Read)).To(BeFalse())
		Expect(cached.Has(faculty, ann, types.View)).To(BeFalse())
	})

	It("drops everything on full invalidation", func() {
		Expect(grants.Grant(staff, ann, types.Read)).To(Succeed())
		Expect(cached.Has(staff, ann, types.Read)).To(BeTrue())

		Expect(grants.Revoke(staff, ann, types.Read)).To(Succeed())
		cached.InvalidateAll()
		Expect(cached.Has(staff, ann, types.Read)).To(BeFalse())
	})

	It("discards a decision computed across an invalidation", func() {
		Expect(grants.Grant(staff, ann, types.Admin)).To(Succeed())

		inter := &interposingResolver{Resolver: counting}
		racy := NewCached(inter, logr.Discard())
		inter.during = func() {
			// the revoke lands while the old decision is still in flight
			Expect(grants.Revoke(staff, ann, types.Admin)).To(Succeed())
			racy.InvalidateOwner(staff)
		}

		Expect(racy.Has(staff, ann, types.Admin)).To(BeTrue())

		inter.during = nil
		Expect(racy.Has(staff, ann, types.Admin)).To(BeFalse())
	})

	It("never caches the system subject's power", func() {
		Expect(cached.Has(staff, types.SystemSubject, types.Admin)).To(BeTrue())
	})
})

