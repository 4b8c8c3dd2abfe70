package serializer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/resourcekit/errors"
)

type record struct {
	kind   string
	fields map[string]any
}

func (r *record) Attributes() map[string]any { return Copy(r.fields).(map[string]any) }

func recordCtor(kind string) ConstructorFunc {
	return func(fields map[string]any) (any, error) {
		return &record{kind: kind, fields: fields}, nil
	}
}

type mapResolver map[string]any

func (m mapResolver) Resolve(name string) (any, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return nil, errors.NotFound("dependency", name)
}

func TestSerialize_TranscodesKeysDeeply(t *testing.T) {
	s := New()
	got, err := s.Serialize(map[string]any{
		"firstName": "Ada",
		"address":   map[string]any{"zipCode": "123"},
		"tags":      []any{map[string]any{"tagName": "x"}, "plain"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"first_name": "Ada",
		"address":    map[string]any{"zip_code": "123"},
		"tags":       []any{map[string]any{"tag_name": "x"}, "plain"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestSerialize_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"firstName": "Ada", "nested": map[string]any{"aB": 1}}
	if _, err := New().Serialize(in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"firstName": "Ada", "nested": map[string]any{"aB": 1}}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

func TestSerialize_ExcludesBookkeepingKeys(t *testing.T) {
	got, _ := New().Serialize(map[string]any{"id": 1, "$snapshots": []any{1, 2}})
	if diff := cmp.Diff(map[string]any{"id": 1}, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestSerialize_FieldRules(t *testing.T) {
	s := New(
		Exclude("secret"),
		Rename("title", "name"),
		Preserve("meta"),
		NestedAttribute("chapters"),
		Add("kind", "book"),
		Add("titleLength", func(m map[string]any) any { return len(m["title"].(string)) }),
	)
	got, err := s.Serialize(map[string]any{
		"title":    "Go",
		"secret":   "x",
		"meta":     map[string]any{"keepMe": true},
		"chapters": []any{map[string]any{"pageCount": 3}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"name":                "Go",
		"meta":                map[string]any{"keepMe": true},
		"chapters_attributes": []any{map[string]any{"page_count": 3}},
		"kind":                "book",
		"title_length":        2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestSerialize_Only(t *testing.T) {
	got, _ := New(Only("id", "name")).Serialize(map[string]any{"id": 1, "name": "x", "other": 2})
	if diff := cmp.Diff(map[string]any{"id": 1, "name": "x"}, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestSerialize_RulesApplyToTopLevelOnly(t *testing.T) {
	got, _ := New(Exclude("id")).Serialize(map[string]any{
		"id":     1,
		"author": map[string]any{"id": 2},
	})
	want := map[string]any{"author": map[string]any{"id": 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestSerialize_Attributer(t *testing.T) {
	rec := &record{fields: map[string]any{"pageCount": 10}}
	got, err := New().Serialize(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"page_count": 10}, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestDeserialize_NilPassesThrough(t *testing.T) {
	got, err := New().Deserialize(nil, recordCtor("book"))
	if err != nil || got != nil {
		t.Errorf("expected nil, got %v (%v)", got, err)
	}
}

func TestDeserialize_ConstructsTopLevel(t *testing.T) {
	got, err := New().Deserialize(map[string]any{"id": float64(1), "first_name": "x"}, recordCtor("book"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, ok := got.(*record)
	if !ok {
		t.Fatalf("expected *record, got %T", got)
	}
	want := map[string]any{"id": float64(1), "firstName": "x"}
	if diff := cmp.Diff(want, rec.fields); diff != "" {
		t.Errorf("unexpected fields (-want +got):\n%s", diff)
	}
}

func TestDeserialize_ArrayElementWise(t *testing.T) {
	got, err := New().Deserialize([]any{
		map[string]any{"id": 1},
		map[string]any{"id": 2},
	}, recordCtor("book"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected two elements, got %v", got)
	}
	for i, item := range list {
		if _, ok := item.(*record); !ok {
			t.Errorf("element %d: expected *record, got %T", i, item)
		}
	}
}

func TestDeserialize_WithoutConstructorReturnsMap(t *testing.T) {
	got, _ := New().Deserialize(map[string]any{"a_b": map[string]any{"c_d": 1}}, nil)
	want := map[string]any{"aB": map[string]any{"cD": 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestDeserialize_RenameAndNested(t *testing.T) {
	got, _ := New(Rename("title", "name"), NestedAttribute("chapters")).
		Deserialize(map[string]any{"name": "Go", "chapters_attributes": []any{}}, nil)
	want := map[string]any{"title": "Go", "chapters": []any{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestDeserialize_Association(t *testing.T) {
	s := New(Resource("author", recordCtor("author")), Resource("chapters", recordCtor("chapter")))
	got, err := s.Deserialize(map[string]any{
		"id":       1,
		"author":   map[string]any{"first_name": "Ada"},
		"chapters": []any{map[string]any{"page_count": 2}},
	}, recordCtor("book"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	book := got.(*record)
	author, ok := book.fields["author"].(*record)
	if !ok || author.kind != "author" {
		t.Fatalf("expected author record, got %#v", book.fields["author"])
	}
	if author.fields["firstName"] != "Ada" {
		t.Errorf("expected firstName=Ada, got %v", author.fields["firstName"])
	}
	chapters := book.fields["chapters"].([]any)
	if ch, ok := chapters[0].(*record); !ok || ch.kind != "chapter" {
		t.Errorf("expected chapter record, got %#v", chapters[0])
	}
}

func TestAssociation_ResolvedByName(t *testing.T) {
	res := mapResolver{"Author": recordCtor("author")}
	s := New(WithResolver(res), Resource("author", "Author"))
	got, err := s.Deserialize(map[string]any{"author": map[string]any{"id": 1}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(map[string]any)["author"].(*record); !ok {
		t.Errorf("expected author record, got %#v", got)
	}
}

func TestAssociation_UnresolvedNameFails(t *testing.T) {
	s := New(WithResolver(mapResolver{}), Resource("author", "Missing"))
	_, err := s.Deserialize(map[string]any{"author": map[string]any{}}, nil)
	if !errors.HasCode(err, errors.ErrCodeUnresolvedDependency) {
		t.Errorf("expected UNRESOLVED_DEPENDENCY, got %v", err)
	}
}

type upper struct{}

func (upper) Serialize(v any) (any, error)                  { return "UP", nil }
func (upper) Deserialize(v any, _ Constructor) (any, error) { return "down", nil }

func TestSerializeWith(t *testing.T) {
	s := New(SerializeWith("code", upper{}))
	out, _ := s.Serialize(map[string]any{"code": "x"})
	if out.(map[string]any)["code"] != "UP" {
		t.Errorf("expected custom serializer output, got %v", out)
	}
	in, _ := s.Deserialize(map[string]any{"code": "X"}, nil)
	if in.(map[string]any)["code"] != "down" {
		t.Errorf("expected custom deserializer output, got %v", in)
	}
}

func TestWrapRoundTripOfKeys(t *testing.T) {
	s := New()
	local := map[string]any{"authorId": 1, "createdAt": "now"}
	wire, _ := s.Serialize(local)
	back, _ := s.Deserialize(wire, nil)
	if diff := cmp.Diff(local, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCopy_IsDeep(t *testing.T) {
	orig := map[string]any{"a": map[string]any{"b": []any{1}}}
	cp := Copy(orig).(map[string]any)
	cp["a"].(map[string]any)["b"].([]any)[0] = 2
	if orig["a"].(map[string]any)["b"].([]any)[0] != 1 {
		t.Error("copy shares nested storage with the original")
	}
}
