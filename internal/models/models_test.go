package models

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
)

func dockerRecord() *Record {
	return &Record{
		Category: Snippet,
		Data:     []string{"docker rm --force redis"},
		Brief:    "Remove docker image with force",
		Group:    "docker",
		Tags:     []string{"docker", "cleanup"},
		Links:    []string{"https://docs.docker.com/engine/reference/commandline/rm/"},
	}
}

func TestNormalize(t *testing.T) {
	r := &Record{
		Category: Snippet,
		Data:     []string{"", "  ", "docker ps -a  \ndocker rm -f x", "", ""},
		Brief:    "  list  ",
		Tags:     []string{"z", "a,b", " a ", ""},
		Links:    []string{"https://b.example https://a.example", "https://a.example"},
		Versions: []string{"docker=20,kernel=5"},
	}
	r.Normalize()

	if want := []string{"docker ps -a", "docker rm -f x"}; !reflect.DeepEqual(r.Data, want) {
		t.Errorf("Data = %q, want %q", r.Data, want)
	}
	if r.Brief != "list" {
		t.Errorf("Brief = %q", r.Brief)
	}
	if r.Group != DefaultGroup {
		t.Errorf("Group = %q, want %q", r.Group, DefaultGroup)
	}
	if want := []string{"a", "b", "z"}; !reflect.DeepEqual(r.Tags, want) {
		t.Errorf("Tags = %q, want %q", r.Tags, want)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(r.Links, want) {
		t.Errorf("Links = %q, want %q", r.Links, want)
	}
	if want := []string{"docker=20", "kernel=5"}; !reflect.DeepEqual(r.Versions, want) {
		t.Errorf("Versions = %q, want %q", r.Versions, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	r := dockerRecord()
	r.Normalize()
	first := checksum.Compute(r.Identity())
	r.Normalize()
	if got := checksum.Compute(r.Identity()); got != first {
		t.Error("normalising twice changed the digest")
	}
}

func TestCanonicalStrings(t *testing.T) {
	r := &Record{
		Data:  []string{"line one", "line two"},
		Tags:  []string{"b", "a"},
		Links: []string{"https://z.example", "https://a.example"},
	}
	if got := r.DataString(); got != "line one\nline two" {
		t.Errorf("DataString = %q", got)
	}
	if got := r.TagsString(); got != "a,b" {
		t.Errorf("TagsString = %q", got)
	}
	if got := r.LinksString(); got != "https://a.example\nhttps://z.example" {
		t.Errorf("LinksString = %q", got)
	}
	if r.Tags[0] != "b" {
		t.Error("TagsString must not reorder the record's tags")
	}
}

func TestSplitColumns(t *testing.T) {
	if got := SplitTags(""); len(got) != 0 || got == nil {
		t.Errorf("SplitTags(\"\") = %#v, want empty non-nil", got)
	}
	if got := SplitTags("a,b"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("SplitTags = %q", got)
	}
	if got := SplitData("x\n\ny"); !reflect.DeepEqual(got, []string{"x", "", "y"}) {
		t.Errorf("SplitData keeps inner blank lines, got %q", got)
	}
}

func TestCategoryDiscriminator(t *testing.T) {
	r := dockerRecord()
	if !r.IsSnippet() || r.IsSolution() {
		t.Error("snippet discriminator wrong")
	}
	r.Category = Solution
	if r.IsSnippet() || !r.IsSolution() {
		t.Error("solution discriminator wrong")
	}
}

func TestParseCategories(t *testing.T) {
	got, err := ParseCategories("")
	if err != nil || len(got) != 2 {
		t.Fatalf("ParseCategories(\"\") = %v, %v", got, err)
	}
	got, err = ParseCategories("solution, snippet,solution")
	if err != nil {
		t.Fatal(err)
	}
	if want := []Category{Solution, Snippet}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := ParseCategories("snippet,recipe"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown category error = %v, want validation", err)
	}
}

func TestTemplateDetection(t *testing.T) {
	for _, c := range Categories() {
		tmpl := Template(c)
		if !tmpl.IsTemplate() {
			t.Errorf("%s template not detected", c)
		}
		tmpl.Data = append(tmpl.Data, "docker ps")
		if tmpl.IsTemplate() {
			t.Errorf("edited %s template still detected as template", c)
		}
	}
	if dockerRecord().IsTemplate() {
		t.Error("regular record reported as template")
	}
}

func TestHasData(t *testing.T) {
	if (&Record{Data: []string{"", "  "}}).HasData() {
		t.Error("blank lines are not data")
	}
	if !dockerRecord().HasData() {
		t.Error("docker record has data")
	}
}

func TestClone_Independent(t *testing.T) {
	r := dockerRecord()
	r.Metadata = map[string]string{"k": "v"}
	c := r.Clone()
	c.Tags[0] = "changed"
	c.Data[0] = "changed"
	c.Metadata["k"] = "changed"
	if r.Tags[0] != "docker" || r.Data[0] != "docker rm --force redis" || r.Metadata["k"] != "v" {
		t.Error("clone shares state with original")
	}
}

func TestDigestIgnoresInternalFields(t *testing.T) {
	r := dockerRecord()
	base := checksum.Compute(r.Identity())
	r.Key = "42"
	r.Metadata = map[string]string{"source": "import"}
	r.Created = "2020-01-01 00:00:00"
	r.UUID = "f0a1"
	if checksum.Compute(r.Identity()) != base {
		t.Error("key, metadata, timestamps, or uuid changed the digest")
	}
}

func TestDictionaryRoundTrip(t *testing.T) {
	d := map[string]any{
		KeyCategory:    "solution",
		KeyData:        []string{"## Description", "", "Kafka fails to start"},
		KeyBrief:       "Debugging Kafka",
		KeyDescription: "Broker startup problems",
		KeyGroups:      "kafka",
		KeyTags:        []string{"docker", "kafka"},
		KeyLinks:       []string{"https://kafka.apache.org/"},
		KeySource:      "",
		KeyVersions:    []string{"kafka=2.1"},
		KeyFilename:    "kubernetes-docker-log-driver-kafka.txt",
		KeyCreated:     "2017-10-20 07:08:45",
		KeyUpdated:     "2017-10-20 07:08:45",
		KeyUUID:        "a1cd5827-b6ef-4067-b5ac-3ceac07dde9f",
		KeyDigest:      "5dee85bedb7f4d3a970aa05b2cf6d39c2fc0e9a0d5e4db6c3e9e3d0ed56d2f1c",
	}
	r, err := FromMap(d)
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if got := r.ToMap(); !reflect.DeepEqual(got, d) {
		t.Errorf("round trip mismatch\n got: %#v\nwant: %#v", got, d)
	}
}

func TestFromMap_LooseInput(t *testing.T) {
	r, err := FromMap(map[string]any{
		KeyCategory: "snippet",
		KeyData:     "docker ps\ndocker images",
		KeyTags:     []any{"docker", "list"},
		KeyLinks:    "https://a.example",
	})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if !reflect.DeepEqual(r.Data, []string{"docker ps", "docker images"}) {
		t.Errorf("Data = %q", r.Data)
	}
	if !reflect.DeepEqual(r.Tags, []string{"docker", "list"}) {
		t.Errorf("Tags = %q", r.Tags)
	}
	if !reflect.DeepEqual(r.Versions, []string{}) {
		t.Errorf("missing versions should be empty, got %#v", r.Versions)
	}
}

func TestFromMap_Errors(t *testing.T) {
	cases := map[string]map[string]any{
		"missing category": {KeyData: []string{"x"}},
		"unknown category": {KeyCategory: "recipe"},
		"bad brief type":   {KeyCategory: "snippet", KeyBrief: []string{"x"}},
		"bad tags type":    {KeyCategory: "snippet", KeyTags: 12},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromMap(d); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}
}

func TestToMap_ExcludesInternalFields(t *testing.T) {
	r := dockerRecord()
	r.Key = "7"
	r.Metadata = map[string]string{"x": "y"}
	m := r.ToMap()
	for _, k := range []string{"key", "metadata", "Key", "Metadata"} {
		if _, ok := m[k]; ok {
			t.Errorf("ToMap leaked %q", k)
		}
	}
}

func TestCollection(t *testing.T) {
	a, b := dockerRecord(), dockerRecord()
	a.Digest, b.Digest = "aaa", "bbb"
	c := NewCollection([]*Record{a, b}, 5)
	if c.Len() != 2 || c.Total() != 5 {
		t.Errorf("Len/Total = %d/%d", c.Len(), c.Total())
	}
	if got := c.Digests(); !reflect.DeepEqual(got, []string{"aaa", "bbb"}) {
		t.Errorf("Digests = %v", got)
	}
	recs := c.Records()
	recs[0].Brief = "mutated"
	if c.At(0).Brief == "mutated" {
		t.Error("mutating returned records changed the collection")
	}
	if NewCollection([]*Record{a}, 0).Total() != 1 {
		t.Error("total must never be below the page size")
	}
}
