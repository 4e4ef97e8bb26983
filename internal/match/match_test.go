package match

import "testing"

func TestIsArtifact(t *testing.T) {
	cases := []struct {
		filename string
		want     bool
	}{
		{"Microsoft_Outlook_16.101_Installer.pkg", true},
		{"slack-4.2.dmg", true},
		{"archive.tar.gz", true},
		{"office_setup", true},
		{"download.partial", true},
		{"notes.txt", false},
		{"report.pdf", false},
		{"photo.png", false},
	}

	for _, tc := range cases {
		if got := IsArtifact(tc.filename); got != tc.want {
			t.Errorf("IsArtifact(%q): got %v, want %v", tc.filename, got, tc.want)
		}
	}
}

func TestMatches_DirectSubstring(t *testing.T) {
	if !Matches("microsoft_outlook", "Microsoft Outlook", "Microsoft_Outlook_16.101_Installer.pkg") {
		t.Error("id substring should match")
	}
	if !Matches("slack", "Slack", "Slack-4.2.dmg") {
		t.Error("plain id should match")
	}
	if !Matches("gchrome", "Google Chrome", "googlechrome.dmg") {
		t.Error("display name with spaces stripped should match")
	}
}

func TestMatches_RejectsOtherItems(t *testing.T) {
	if Matches("microsoft_outlook", "Microsoft Outlook", "Slack-4.2.dmg") {
		t.Error("outlook must not match a slack artifact")
	}
	if Matches("zoom_client", "Zoom", "Firefox-Setup-130.0.pkg") {
		t.Error("zoom must not match a firefox artifact")
	}
}

func TestMatches_RequiresArtifactPrefilter(t *testing.T) {
	// Name similarity alone is not enough: the extension allow-list gates
	// every strategy.
	if Matches("microsoft_outlook", "Microsoft Outlook", "microsoft_outlook_notes.txt") {
		t.Error("non-artifact extension must be skipped outright")
	}
}

func TestMatches_ComponentTokens(t *testing.T) {
	// Tokens longer than two characters from the id must all appear.
	if !Matches("office_productivity_suite", "Office Productivity Suite", "office-productivity-suite-2024.pkg") {
		t.Error("all id tokens present should match")
	}
	if Matches("office_productivity_suite", "Office Productivity Suite", "office-only.pkg") {
		t.Error("missing tokens should not match")
	}
}

func TestMatches_CondensedForm(t *testing.T) {
	if !Matches("note_taker", "Note Taker", "notetaker_setup.dmg") {
		t.Error("condensed id should match")
	}
}

func TestMatches_BrandFallback(t *testing.T) {
	// Vendor-branded installers often carry only the product token.
	if !Matches("microsoft_word", "Microsoft Word", "Word_Installer_16.88.pkg") {
		t.Error("brand fallback should match product token")
	}
	if Matches("initech_word", "Initech Word", "Word_Installer_16.88.pkg") {
		t.Error("unknown brand prefix must not fall back")
	}
}

func TestMatches_EmptyInputs(t *testing.T) {
	if Matches("", "", "whatever.pkg") {
		t.Error("empty id and name must never match")
	}
}
