package semantic

import (
	"fmt"
	"strings"

	"github.com/stl-lang/stlconform/internal/manifest"
)

// CheckRoleInstances validates every manifest role instance against the
// linked program's RoleDecl: the fully-qualified role must exist, every
// declared field must be present with a value of the declared scalar type,
// and no undeclared field may appear.
func (c *Checker) CheckRoleInstances(roles []manifest.RoleInstance) []*Error {
	var errs []*Error
	for i, inst := range roles {
		where := fmt.Sprintf("manifest roles[%d] (%s)", i, inst.Role)
		module, name, ok := splitFQ(inst.Role)
		if !ok {
			errs = append(errs, &Error{Where: where, Message: fmt.Sprintf("role name %q is not fully qualified as module::role", inst.Role)})
			continue
		}
		decl, ok := c.prog.ResolveRole(module, name)
		if !ok {
			errs = append(errs, &Error{Where: where, Message: fmt.Sprintf("undefined role %q", inst.Role)})
			continue
		}
		for _, f := range decl.Fields {
			raw, present := inst.Fields[f.Name.Name]
			if !present {
				errs = append(errs, &Error{Where: where, Message: fmt.Sprintf("missing value for field %q", f.Name.Name)})
				continue
			}
			if !manifestValueMatchesType(raw, f.Type.Name) {
				errs = append(errs, &Error{
					Where:    where,
					Expected: f.Type.String(),
					Got:      fmt.Sprintf("%T", raw),
					Message:  fmt.Sprintf("field %q: wrong value type", f.Name.Name),
				})
			}
		}
		declared := map[string]bool{}
		for _, f := range decl.Fields {
			declared[f.Name.Name] = true
		}
		for k := range inst.Fields {
			if !declared[k] {
				errs = append(errs, &Error{Where: where, Message: fmt.Sprintf("field %q is not declared on role %q", k, inst.Role)})
			}
		}
	}
	return errs
}

func manifestValueMatchesType(v interface{}, typeName string) bool {
	switch typeName {
	case "int":
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case "string":
		_, ok := v.(string)
		return ok
	case "bool":
		_, ok := v.(bool)
		return ok
	default:
		// Message-typed role fields are not part of the documented manifest
		// shape; accept anything rather than reject a form the core has no
		// stake in.
		return true
	}
}

func splitFQ(s string) (module, name string, ok bool) {
	return strings.Cut(s, "::")
}
