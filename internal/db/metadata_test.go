package db

import (
	"encoding/json"
	"testing"
)

func TestParseMetadataAccessors(t *testing.T) {
	meta, err := ParseMetadata(`{"subtitle":"probably harder","to":37,"from":"2.5","isTrillions":true,"nested":{"a":1}}`)
	if err != nil {
		t.Fatalf("ParseMetadata returned error: %v", err)
	}

	if got, ok := meta.String("subtitle"); !ok || got != "probably harder" {
		t.Fatalf("expected subtitle, got %q (ok=%v)", got, ok)
	}
	if got, ok := meta.Float("to"); !ok || got != 37 {
		t.Fatalf("expected to=37, got %v (ok=%v)", got, ok)
	}
	if got, ok := meta.Float("from"); !ok || got != 2.5 {
		t.Fatalf("expected numeric string to parse, got %v (ok=%v)", got, ok)
	}
	if got, ok := meta.Bool("isTrillions"); !ok || !got {
		t.Fatalf("expected isTrillions=true, got %v (ok=%v)", got, ok)
	}
	if _, ok := meta.String("nested"); ok {
		t.Fatal("objects must not read as strings")
	}
	if _, ok := meta.String("missing"); ok {
		t.Fatal("missing keys must report absence")
	}
}

func TestMetadataAccessorsOnNonObjects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "array", text: `[1,2,3]`},
		{name: "scalar", text: `"hello"`},
		{name: "null", text: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseMetadata(tt.text)
			if err != nil {
				t.Fatalf("ParseMetadata returned error: %v", err)
			}
			if _, ok := meta.String("icon"); ok {
				t.Fatal("expected no keys on non-object metadata")
			}
		})
	}
}

func TestParseMetadataRejectsInvalidJSON(t *testing.T) {
	for _, text := range []string{"", "{", "{'a':1}", "nope"} {
		if _, err := ParseMetadata(text); err == nil {
			t.Fatalf("expected error for %q", text)
		}
	}
}

func TestMetadataScanAndValue(t *testing.T) {
	original := NewMetadata(map[string]any{"icon": "Target", "rank": 2})

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}

	var scanned Metadata
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if icon, _ := scanned.String("icon"); icon != "Target" {
		t.Fatalf("expected icon to survive storage, got %q", icon)
	}

	var empty Metadata
	if err := empty.Scan(nil); err != nil || !empty.IsNull() {
		t.Fatalf("expected nil scan to yield null metadata, err=%v", err)
	}
	if err := empty.Scan(42); err == nil {
		t.Fatal("expected unsupported source type to fail")
	}
}

func TestContentItemJSONUsesWireNames(t *testing.T) {
	item := ContentItem{ID: "x", Section: "faq", Title: "Q", DisplayOrder: 3, IsActive: true, Metadata: EmptyObject()}
	raw, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"id", "section", "title", "metadata", "image_url", "display_order", "is_active", "created_at", "updated_at"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected key %q in %s", key, raw)
		}
	}
}

func TestContentInputItemDefaults(t *testing.T) {
	item := ContentInput{Section: "faq", Title: "New"}.Item()
	if !item.IsActive {
		t.Fatal("expected unset IsActive to default to true")
	}
	if _, ok := item.Metadata.Any().(map[string]any); !ok {
		t.Fatalf("expected empty object metadata, got %#v", item.Metadata.Any())
	}

	inactive := false
	item = ContentInput{Section: "faq", Title: "Hidden", IsActive: &inactive}.Item()
	if item.IsActive {
		t.Fatal("expected explicit false to be kept")
	}
}

func TestContentPatchApplyOnlySetFields(t *testing.T) {
	item := ContentItem{Title: "Old", Content: "Body", DisplayOrder: 2, IsActive: true}
	title := "New"
	patch := ContentPatch{Title: &title}

	patch.Apply(&item)

	if item.Title != "New" || item.Content != "Body" || item.DisplayOrder != 2 || !item.IsActive {
		t.Fatalf("unexpected item after patch: %#v", item)
	}
	if cols := patch.Columns(); len(cols) != 1 || cols["title"] != "New" {
		t.Fatalf("unexpected columns: %#v", cols)
	}
	if (ContentPatch{}).IsEmpty() != true {
		t.Fatal("expected zero patch to be empty")
	}
}
