// Package registry implements the public Registry contract by orchestrating
// the namespace, the membership closure, and the privilege layer. Every
// mutation runs the same pipeline: validate, check the caller's privilege,
// fire pre hooks, mutate, invalidate cached privilege decisions, fire post
// hooks.
package registry

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/internal/closure"
	"github.com/saltybeagle/grouper/internal/hooks"
	"github.com/saltybeagle/grouper/internal/namespace"
	"github.com/saltybeagle/grouper/internal/privilege"
	"github.com/saltybeagle/grouper/internal/validate"
	"github.com/saltybeagle/grouper/types"
)

var _ types.Registry = (*Service)(nil)

// Config carries the collaborators a Service orchestrates
type Config struct {
	Closure   closure.Closure
	Grants    privilege.Grants
	Resolver  privilege.CachedResolver
	Namespace namespace.Namespace
	Hooks     *hooks.Registry
	Fields    []types.Field
	Log       logr.Logger
}

// Service is the orchestrating Registry implementation
type Service struct {
	closure   closure.Closure
	grants    privilege.Grants
	resolver  privilege.CachedResolver
	namespace namespace.Namespace
	hooks     *hooks.Registry
	fields    map[string]types.Field
	log       logr.Logger
}

// New creates a Service from its collaborators. The built-in schema fields
// are always present, extra fields from the config are added next to them.
func New(cfg Config) (*Service, error) {
	fields := make(map[string]types.Field)
	for _, f := range types.BuiltinFields() {
		fields[f.Name] = f
	}
	for _, f := range cfg.Fields {
		if e := validate.First(
			validate.NotBlank("field name", f.Name),
			validate.NoSeparators("field name", f.Name),
			validate.NotSystemField(fields, f.Name),
		); e != nil {
			return nil, e
		}
		fields[f.Name] = f
	}

	return &Service{
		closure:   cfg.Closure,
		grants:    cfg.Grants,
		resolver:  cfg.Resolver,
		namespace: cfg.Namespace,
		hooks:     cfg.Hooks,
		fields:    fields,
		log:       cfg.Log,
	}, nil
}

// check verifies the session's subject holds the privilege on the owner.
// The system subject passes unconditionally.
func (s *Service) check(sess types.Session, o types.Owner, p types.Privilege) error {
	if sess.IsRoot() {
		return nil
	}
	ok, e := s.resolver.Has(o, sess.Subject, p)
	if e != nil {
		return e
	}
	if !ok {
		return fmt.Errorf("%w: %s needs %s on %s", types.ErrInsufficientPrivilege, sess.Subject, p, o)
	}
	return nil
}

// invalidate drops cached privilege decisions for every member whose
// reachability a closure mutation changed
func (s *Service) invalidate(delta closure.Delta) {
	for m := range delta {
		s.resolver.InvalidateMember(m)
	}
}

// groupMustExist translates a missing group to ErrNotFound
func (s *Service) groupMustExist(g types.Group) error {
	ok, e := s.namespace.GroupExists(g)
	if e != nil {
		return e
	}
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, g)
	}
	return nil
}

func (s *Service) AddMember(sess types.Session, g types.Group, m types.Member, field string, opts ...types.AddMemberOption) error {
	cfg := types.AddMemberConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if e := validate.First(
		validate.KnownField(s.fields, field),
		validate.FieldIsList(s.fields, field),
	); e != nil {
		return fmt.Errorf("%w: %w", types.ErrMemberAdd, e)
	}
	if e := s.groupMustExist(g); e != nil {
		return fmt.Errorf("%w: %w", types.ErrMemberAdd, e)
	}
	if field == types.DefaultList {
		bound, e := s.closure.HasComposite(g)
		if e != nil {
			return e
		}
		if bound {
			return fmt.Errorf("%w: %w: %s derives its members from a composite", types.ErrMemberAdd, types.ErrCompositeConflict, g)
		}
	}

	if e := s.check(sess, g, s.fields[field].Write); e != nil {
		return e
	}

	if cfg.IfAbsent {
		present, e := s.closure.HasImmediate(g, m, field)
		if e != nil {
			return e
		}
		if present {
			s.log.V(6).Info("member already present, skipping", "group", g, "member", m, "field", field)
			return nil
		}
	}

	ev := types.HookEvent{
		Kind:       types.HookMembership,
		Membership: &types.MembershipPolicy{Owner: g, Field: field, Member: m},
	}
	if e := s.hooks.Pre(sess, types.PreInsert, ev); e != nil {
		return e
	}

	delta, e := s.closure.Join(g, field, m)
	if e != nil {
		return fmt.Errorf("%w: %w", types.ErrMemberAdd, e)
	}
	s.invalidate(delta)

	s.hooks.Post(sess, types.PostInsert, ev)
	return nil
}

func (s *Service) DeleteMember(sess types.Session, g types.Group, m types.Member, field string) error {
	if e := validate.First(
		validate.KnownField(s.fields, field),
		validate.FieldIsList(s.fields, field),
	); e != nil {
		return fmt.Errorf("%w: %w", types.ErrMemberDelete, e)
	}

	if e := s.check(sess, g, s.fields[field].Write); e != nil {
		return e
	}

	ev := types.HookEvent{
		Kind:       types.HookMembership,
		Membership: &types.MembershipPolicy{Owner: g, Field: field, Member: m},
	}
	if e := s.hooks.Pre(sess, types.PreDelete, ev); e != nil {
		return e
	}

	delta, e := s.closure.Leave(g, field, m)
	if e != nil {
		return fmt.Errorf("%w: %w", types.ErrMemberDelete, e)
	}
	s.invalidate(delta)

	s.hooks.Post(sess, types.PostDelete, ev)
	return nil
}

// checkListRead verifies the field is a list and the caller may read it
func (s *Service) checkListRead(sess types.Session, g types.Group, field string) error {
	if e := validate.First(
		validate.KnownField(s.fields, field),
		validate.FieldIsList(s.fields, field),
	); e != nil {
		return e
	}
	return s.check(sess, g, s.fields[field].Read)
}

func (s *Service) ImmediateMembers(sess types.Session, g types.Group, field string) (map[types.Member]struct{}, error) {
	if e := s.checkListRead(sess, g, field); e != nil {
		return nil, e
	}
	return s.closure.ImmediateMembers(g, field)
}

func (s *Service) EffectiveMembers(sess types.Session, g types.Group, field string) (map[types.Member]struct{}, error) {
	if e := s.checkListRead(sess, g, field); e != nil {
		return nil, e
	}
	return s.closure.EffectiveMembers(g, field)
}

func (s *Service) Members(sess types.Session, g types.Group, field string) (map[types.Member]struct{}, error) {
	if e := s.checkListRead(sess, g, field); e != nil {
		return nil, e
	}
	return s.closure.Members(g, field)
}

func (s *Service) Memberships(sess types.Session, g types.Group, field string) ([]types.Membership, error) {
	if e := s.checkListRead(sess, g, field); e != nil {
		return nil, e
	}
	return s.closure.Memberships(g, field)
}

func (s *Service) GroupsOf(sess types.Session, m types.Member) (map[types.Group]struct{}, error) {
	all, e := s.closure.GroupsOf(m)
	if e != nil {
		return nil, e
	}
	if sess.IsRoot() {
		return all, nil
	}

	// others only see the groups whose member list they may read
	out := make(map[types.Group]struct{}, len(all))
	for g := range all {
		ok, e := s.resolver.Has(g, sess.Subject, s.fields[types.DefaultList].Read)
		if e != nil {
			return nil, e
		}
		if ok {
			out[g] = struct{}{}
		}
	}
	return out, nil
}

func (s *Service) IsMember(sess types.Session, g types.Group, m types.Member, field string) (bool, error) {
	if e := s.checkListRead(sess, g, field); e != nil {
		return false, e
	}
	return s.closure.IsMember(g, m, field)
}

func (s *Service) AddComposite(sess types.Session, owner types.Group, op types.CompositeOp, left, right types.Group) error {
	if e := validate.First(
		validate.GoodCompositeOp(op),
		validate.DistinctFactors(left, right),
	); e != nil {
		return e
	}
	for _, g := range []types.Group{owner, left, right} {
		if e := s.groupMustExist(g); e != nil {
			return e
		}
	}

	if e := s.check(sess, owner, types.Update); e != nil {
		return e
	}
	for _, factor := range []types.Group{left, right} {
		if e := s.check(sess, factor, types.Read); e != nil {
			return e
		}
	}

	def := types.Composite{Owner: owner, Op: op, Left: left, Right: right}
	ev := types.HookEvent{Kind: types.HookComposite, Composite: &def}
	if e := s.hooks.Pre(sess, types.PreInsert, ev); e != nil {
		return e
	}

	delta, e := s.closure.Bind(def)
	if e != nil {
		return e
	}
	s.invalidate(delta)

	s.hooks.Post(sess, types.PostInsert, ev)
	return nil
}

func (s *Service) DeleteComposite(sess types.Session, owner types.Group) error {
	if e := s.check(sess, owner, types.Update); e != nil {
		return e
	}

	def, e := s.closure.CompositeOf(owner)
	if e != nil {
		return e
	}
	ev := types.HookEvent{Kind: types.HookComposite, Composite: &def}
	if e := s.hooks.Pre(sess, types.PreDelete, ev); e != nil {
		return e
	}

	delta, e := s.closure.Unbind(owner)
	if e != nil {
		return e
	}
	s.invalidate(delta)

	s.hooks.Post(sess, types.PostDelete, ev)
	return nil
}

func (s *Service) CompositeOf(sess types.Session, owner types.Group) (types.Composite, error) {
	if e := s.check(sess, owner, types.Read); e != nil {
		return types.Composite{}, e
	}
	return s.closure.CompositeOf(owner)
}

// grantable returns the privileges that make sense on the owner kind
func grantable(o types.Owner) types.Privilege {
	if _, ok := o.(types.Stem); ok {
		return types.NamingPrivileges
	}
	return types.AccessPrivileges
}

// adminOf returns the privilege that rules grants on the owner kind
func adminOf(o types.Owner) types.Privilege {
	if _, ok := o.(types.Stem); ok {
		return types.StemAdmin
	}
	return types.Admin
}

func (s *Service) Grant(sess types.Session, owner types.Owner, grantee types.Member, p types.Privilege) error {
	if p == types.NoPrivilege {
		return fmt.Errorf("%w: empty privilege set", types.ErrSchema)
	}
	if !p.IsIn(grantable(owner)) {
		return fmt.Errorf("%w: %s is not grantable on %s", types.ErrSchema, p.Difference(grantable(owner)), owner)
	}

	if e := s.check(sess, owner, adminOf(owner)); e != nil {
		return e
	}

	ev := types.HookEvent{
		Kind:  types.HookGrant,
		Grant: &types.GrantPolicy{Owner: owner, Grantee: grantee, Privilege: p},
	}
	if e := s.hooks.Pre(sess, types.PreInsert, ev); e != nil {
		return e
	}

	if e := s.grants.Grant(owner, grantee, p); e != nil {
		return e
	}
	s.resolver.InvalidateOwner(owner)

	s.hooks.Post(sess, types.PostInsert, ev)
	return nil
}

func (s *Service) Revoke(sess types.Session, owner types.Owner, grantee types.Member, p types.Privilege) error {
	if e := s.check(sess, owner, adminOf(owner)); e != nil {
		return e
	}

	ev := types.HookEvent{
		Kind:  types.HookGrant,
		Grant: &types.GrantPolicy{Owner: owner, Grantee: grantee, Privilege: p},
	}
	if e := s.hooks.Pre(sess, types.PreDelete, ev); e != nil {
		return e
	}

	if e := s.grants.Revoke(owner, grantee, p); e != nil {
		return e
	}
	s.resolver.InvalidateOwner(owner)

	s.hooks.Post(sess, types.PostDelete, ev)
	return nil
}

func (s *Service) HasPrivilege(sess types.Session, owner types.Owner, m types.Member, p types.Privilege) (bool, error) {
	return s.resolver.Has(owner, m, p)
}

func (s *Service) PrivilegesOf(sess types.Session, owner types.Owner, m types.Member) (types.Privilege, error) {
	return s.resolver.PrivilegesOf(owner, m)
}

func (s *Service) SubjectsWith(sess types.Session, owner types.Owner, p types.Privilege) (map[types.Member]struct{}, error) {
	if e := s.check(sess, owner, adminOf(owner)); e != nil {
		return nil, e
	}

	held, e := s.resolver.SubjectsWith(owner, p)
	if e != nil {
		return nil, e
	}
	out := make(map[types.Member]struct{}, len(held))
	for m := range held {
		out[m] = struct{}{}
	}
	return out, nil
}

func (s *Service) AddStem(sess types.Session, parent types.Stem, extension, displayName string) (types.Stem, error) {
	if e := validate.GoodExtension(extension)(); e != nil {
		return "", e
	}
	if e := s.check(sess, parent, types.StemAdmin); e != nil {
		return "", e
	}

	st := parent.Child(extension)
	ev := types.HookEvent{Kind: types.HookStem, Stem: st}
	if e := s.hooks.Pre(sess, types.PreInsert, ev); e != nil {
		return "", e
	}

	if e := s.namespace.AddStem(st); e != nil {
		return "", e
	}
	if displayName != "" {
		if e := s.namespace.SetStemAttribute(st, types.FieldDisplayName, displayName); e != nil {
			return "", e
		}
	}
	// the creator rules the new stem
	if !sess.IsRoot() {
		if e := s.grants.Grant(st, sess.Subject, types.StemAdmin|types.Create); e != nil {
			return "", e
		}
	}
	s.resolver.InvalidateOwner(st)

	s.hooks.Post(sess, types.PostInsert, ev)
	return st, nil
}

func (s *Service) AddGroup(sess types.Session, parent types.Stem, extension, displayName string) (types.Group, error) {
	if e := validate.GoodExtension(extension)(); e != nil {
		return "", e
	}
	if e := s.check(sess, parent, types.Create); e != nil {
		return "", e
	}

	g := parent.ChildGroup(extension)
	ev := types.HookEvent{Kind: types.HookGroup, Group: g}
	if e := s.hooks.Pre(sess, types.PreInsert, ev); e != nil {
		return "", e
	}

	if e := s.namespace.AddGroup(g); e != nil {
		return "", e
	}
	if displayName != "" {
		if e := s.namespace.SetAttribute(g, types.FieldDisplayName, displayName); e != nil {
			return "", e
		}
	}
	// the creator administers the new group, everyone may see and read it
	if !sess.IsRoot() {
		if e := s.grants.Grant(g, sess.Subject, types.Admin); e != nil {
			return "", e
		}
	}
	if e := s.grants.Grant(g, types.EverySubject, types.Read|types.View); e != nil {
		return "", e
	}
	s.resolver.InvalidateOwner(g)

	s.hooks.Post(sess, types.PostInsert, ev)
	return g, nil
}

func (s *Service) DeleteStem(sess types.Session, st types.Stem) error {
	if e := s.check(sess, st, types.StemAdmin); e != nil {
		return e
	}

	ev := types.HookEvent{Kind: types.HookStem, Stem: st}
	if e := s.hooks.Pre(sess, types.PreDelete, ev); e != nil {
		return e
	}

	if e := s.namespace.RemoveStem(st); e != nil {
		return e
	}
	if e := s.grants.RemoveOwner(st); e != nil {
		return e
	}
	s.resolver.InvalidateOwner(st)

	s.hooks.Post(sess, types.PostDelete, ev)
	return nil
}

func (s *Service) DeleteGroup(sess types.Session, g types.Group) error {
	if e := s.groupMustExist(g); e != nil {
		return e
	}
	if e := s.check(sess, g, types.Admin); e != nil {
		return e
	}

	ev := types.HookEvent{Kind: types.HookGroup, Group: g}
	if e := s.hooks.Pre(sess, types.PreDelete, ev); e != nil {
		return e
	}

	// the group goes away as a list owner, a member elsewhere, a composite
	// owner, a composite factor, a grant target, and a grantee
	delta, e := s.closure.RemoveGroup(g)
	if e != nil {
		return e
	}
	if e := s.namespace.RemoveGroup(g); e != nil {
		return e
	}
	if e := s.grants.RemoveOwner(g); e != nil {
		return e
	}
	if e := s.grants.RemoveGrantee(g); e != nil {
		return e
	}
	s.invalidate(delta)
	s.resolver.InvalidateOwner(g)
	s.resolver.InvalidateMember(g)

	s.hooks.Post(sess, types.PostDelete, ev)
	return nil
}

func (s *Service) SetAttribute(sess types.Session, g types.Group, field, value string) error {
	if e := validate.First(
		validate.KnownField(s.fields, field),
		validate.FieldIsAttribute(s.fields, field),
	); e != nil {
		return e
	}
	if e := s.groupMustExist(g); e != nil {
		return e
	}
	if e := s.check(sess, g, s.fields[field].Write); e != nil {
		return e
	}

	ev := types.HookEvent{Kind: types.HookAttribute, Group: g, Field: field, Value: value}
	if e := s.hooks.Pre(sess, types.PreUpdate, ev); e != nil {
		return e
	}

	if e := s.namespace.SetAttribute(g, field, value); e != nil {
		return e
	}

	s.hooks.Post(sess, types.PostUpdate, ev)
	return nil
}

func (s *Service) Attribute(sess types.Session, g types.Group, field string) (string, error) {
	if e := validate.First(
		validate.KnownField(s.fields, field),
		validate.FieldIsAttribute(s.fields, field),
	); e != nil {
		return "", e
	}
	if e := s.check(sess, g, s.fields[field].Read); e != nil {
		return "", e
	}
	return s.namespace.Attribute(g, field)
}

func (s *Service) Groups(sess types.Session, st types.Stem) (map[types.Group]struct{}, error) {
	all, e := s.namespace.Groups(st)
	if e != nil {
		return nil, e
	}

	out := make(map[types.Group]struct{}, len(all))
	for _, g := range all {
		if !sess.IsRoot() {
			// only groups the caller may view show up
			ok, e := s.resolver.Has(g, sess.Subject, types.View)
			if e != nil {
				return nil, e
			}
			if !ok {
				continue
			}
		}
		out[g] = struct{}{}
	}
	return out, nil
}

func (s *Service) Stems(sess types.Session, st types.Stem) (map[types.Stem]struct{}, error) {
	children, e := s.namespace.Children(st)
	if e != nil {
		return nil, e
	}
	out := make(map[types.Stem]struct{}, len(children))
	for _, child := range children {
		out[child] = struct{}{}
	}
	return out, nil
}

func (s *Service) GroupExists(sess types.Session, g types.Group) (bool, error) {
	return s.namespace.GroupExists(g)
}

func (s *Service) StemExists(sess types.Session, st types.Stem) (bool, error) {
	return s.namespace.StemExists(st)
}
