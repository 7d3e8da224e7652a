package manifest

import "testing"

func TestSubstituteReplacesKeyTextually(t *testing.T) {
	out := Substitute(`ipAddress: "$ip"`, map[string]string{"ip": "0.0.0.0"})
	if out != `ipAddress: "0.0.0.0"` {
		t.Fatalf("unexpected substitution: %q", out)
	}
}

func TestSubstituteLeavesUnknownKeysAlone(t *testing.T) {
	out := Substitute("port: $port", map[string]string{"ip": "0.0.0.0"})
	if out != "port: $port" {
		t.Fatalf("unexpected substitution: %q", out)
	}
}

func TestSubstituteIsNonRecursive(t *testing.T) {
	// The substituted value "$inner" must not itself be re-scanned.
	out := Substitute("x: $outer", map[string]string{"outer": "$inner", "inner": "replaced"})
	if out != "x: $inner" {
		t.Fatalf("substitution was recursive: %q", out)
	}
}

const sampleManifest = `
stl_files:
  - tls.stl
roles:
  - role: tls::rSender
    ipAddress: "$ip"
  - role: tls::rReceiver
test:
  - tls::rSender
`

func TestLoadDecodesRolesAndSubstitutesArgs(t *testing.T) {
	doc, err := Load(sampleManifest, map[string]string{"ip": "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.STLFiles) != 1 || doc.STLFiles[0] != "tls.stl" {
		t.Fatalf("unexpected stl_files: %v", doc.STLFiles)
	}
	if len(doc.Roles) != 2 || doc.Roles[0].Role != "tls::rSender" {
		t.Fatalf("unexpected roles: %+v", doc.Roles)
	}
	if got := doc.Roles[0].Fields["ipAddress"]; got != "10.0.0.1" {
		t.Fatalf("expected substituted ipAddress, got %v", got)
	}
	if len(doc.Test) != 1 || doc.Test[0] != "tls::rSender" {
		t.Fatalf("unexpected test list: %v", doc.Test)
	}
}

func TestLoadRejectsTestEntryWithNoMatchingRole(t *testing.T) {
	_, err := Load(`
stl_files: []
roles: []
test:
  - tls::rGhost
`, nil)
	if err == nil {
		t.Fatalf("expected an error for an undeclared test role")
	}
}
