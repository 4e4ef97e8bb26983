package document

import "testing"

const xmlPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>InstallState</key>
	<string>installed</string>
	<key>Attempts</key>
	<integer>2</integer>
	<key>Sets</key>
	<array>
		<dict>
			<key>Enabled</key>
			<true/>
		</dict>
	</array>
</dict>
</plist>`

func TestParse_XMLPlist(t *testing.T) {
	doc, err := Parse("/prefs/install.plist", []byte(xmlPlist))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	v, ok := Resolve(doc, "InstallState")
	if !ok {
		t.Fatal("InstallState should resolve")
	}
	if v.Stringify() != "installed" {
		t.Errorf("InstallState: got %q", v.Stringify())
	}

	v, ok = Resolve(doc, "Sets.0.Enabled")
	if !ok {
		t.Fatal("Sets.0.Enabled should resolve")
	}
	if b, _ := v.AsBool(); !b {
		t.Error("Sets.0.Enabled should be true")
	}
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse("/prefs/state.json", []byte(`{"count": 3, "items": ["a", "b"]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	v, ok := Resolve(doc, "items.1")
	if !ok || v.Stringify() != "b" {
		t.Errorf("items.1: got %q ok=%v", v.Stringify(), ok)
	}
}

func TestParse_YAML(t *testing.T) {
	doc, err := Parse("/prefs/state.yaml", []byte("install:\n  done: true\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	v, ok := Resolve(doc, "install.done")
	if !ok {
		t.Fatal("install.done should resolve")
	}
	if b, _ := v.AsBool(); !b {
		t.Error("install.done should be true")
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse("/prefs/broken.plist", []byte("not a plist at all")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse("/prefs/broken.json", []byte("{")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStringify(t *testing.T) {
	cases := []struct {
		value Value
		want  string
	}{
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Int(42), "42"},
		{Float(1.5), "1.5"},
		{Float(50), "50"},
		{String("plain"), "plain"},
		{Null(), ""},
		{Array(Int(1)), ""},
	}
	for _, tc := range cases {
		if got := tc.value.Stringify(); got != tc.want {
			t.Errorf("Stringify(%v): got %q, want %q", tc.value, got, tc.want)
		}
	}
}
