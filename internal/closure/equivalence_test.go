package closure

import (
	"fmt"
	"math/rand"
	"strconv"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/saltybeagle/grouper/types"
)

// the fat closure must agree with the brute-force engine on every query after
// any mutation sequence
var _ = Describe("fat vs slim equivalence", func() {
	const (
		groups   = 8
		subjects = 6
		rounds   = 400
		seed     = 42
	)

	var (
		fat  Closure
		slim Closure
		rng  *rand.Rand

		pool    []types.Group
		people  []types.Member
		anybody []types.Member
	)

	BeforeEach(func() {
		fat = NewFatClosure()
		slim = NewSlimClosure()
		rng = rand.New(rand.NewSource(seed))

		pool = make([]types.Group, 0, groups)
		for i := 0; i < groups; i++ {
			pool = append(pool, types.Group("rand:"+strconv.Itoa(i)))
		}
		people = make([]types.Member, 0, subjects)
		for i := 0; i < subjects; i++ {
			people = append(people, types.NewPerson("p"+strconv.Itoa(i)))
		}
		anybody = make([]types.Member, 0, groups+subjects)
		for _, g := range pool {
			anybody = append(anybody, g)
		}
		anybody = append(anybody, people...)
	})

	agree := func() {
		for _, g := range pool {
			fatAll, e := fat.Members(g, types.DefaultList)
			Expect(e).To(Succeed())
			slimAll, e := slim.Members(g, types.DefaultList)
			Expect(e).To(Succeed())
			Expect(fatAll).To(Equal(slimAll), "members of %s", g)

			fatEff, e := fat.EffectiveMembers(g, types.DefaultList)
			Expect(e).To(Succeed())
			slimEff, e := slim.EffectiveMembers(g, types.DefaultList)
			Expect(e).To(Succeed())
			Expect(fatEff).To(Equal(slimEff), "effective members of %s", g)

			fatImm, e := fat.ImmediateMembers(g, types.DefaultList)
			Expect(e).To(Succeed())
			slimImm, e := slim.ImmediateMembers(g, types.DefaultList)
			Expect(e).To(Succeed())
			Expect(fatImm).To(Equal(slimImm), "immediate members of %s", g)
		}
		for _, m := range anybody {
			fatGroups, e := fat.GroupsOf(m)
			Expect(e).To(Succeed())
			slimGroups, e := slim.GroupsOf(m)
			Expect(e).To(Succeed())
			Expect(fatGroups).To(Equal(slimGroups), "groups of %s", m)
		}
	}

	// both engines must accept or reject each operation identically
	both := func(op func(c Closure) error, what string) {
		fatErr := op(fat)
		slimErr := op(slim)
		if fatErr == nil {
			ExpectWithOffset(1, slimErr).To(Succeed(), "%s: fat accepted, slim rejected", what)
		} else {
			ExpectWithOffset(1, slimErr).To(HaveOccurred(), "%s: fat rejected with %v, slim accepted", what, fatErr)
		}
	}

	It("stays consistent through a random mutation sequence", func() {
		ops := []types.CompositeOp{types.OpUnion, types.OpIntersection, types.OpComplement}

		for i := 0; i < rounds; i++ {
			g := pool[rng.Intn(len(pool))]

			switch rng.Intn(10) {
			case 0, 1, 2, 3:
				m := anybody[rng.Intn(len(anybody))]
				both(func(c Closure) error {
					_, e := c.Join(g, types.DefaultList, m)
					return e
				}, fmt.Sprintf("join %s <- %s", g, m))

			case 4, 5:
				m := anybody[rng.Intn(len(anybody))]
				both(func(c Closure) error {
					_, e := c.Leave(g, types.DefaultList, m)
					return e
				}, fmt.Sprintf("leave %s <- %s", g, m))

			case 6:
				def := types.Composite{
					Owner: g,
					Op:    ops[rng.Intn(len(ops))],
					Left:  pool[rng.Intn(len(pool))],
					Right: pool[rng.Intn(len(pool))],
				}
				if def.Left == def.Right || def.Left == g || def.Right == g {
					continue
				}
				both(func(c Closure) error {
					_, e := c.Bind(def)
					return e
				}, fmt.Sprintf("bind %s = %s(%s, %s)", g, def.Op, def.Left, def.Right))

			case 7:
				both(func(c Closure) error {
					_, e := c.Unbind(g)
					return e
				}, fmt.Sprintf("unbind %s", g))

			case 8:
				m := people[rng.Intn(len(people))]
				both(func(c Closure) error {
					_, e := c.RemoveMember(m)
					return e
				}, fmt.Sprintf("remove member %s", m))

			case 9:
				// rare, it clears a lot of state at once
				if rng.Intn(4) != 0 {
					continue
				}
				both(func(c Closure) error {
					_, e := c.RemoveGroup(g)
					return e
				}, fmt.Sprintf("remove group %s", g))
			}

			if i%20 == 0 {
				agree()
			}
		}
		agree()
	})
})
