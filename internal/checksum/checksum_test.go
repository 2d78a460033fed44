package checksum

import (
	"regexp"
	"testing"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func dockerIdentity() Identity {
	return Identity{
		Data:     []string{"docker rm --force redis"},
		Brief:    "Remove docker image with force",
		Group:    "docker",
		Tags:     []string{"docker", "cleanup"},
		Links:    []string{"https://docs.docker.com/engine/reference/commandline/rm/"},
		Category: "snippet",
	}
}

func TestSum(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	id := dockerIdentity()
	first := Compute(id)
	if !hexDigest.MatchString(first) {
		t.Fatalf("digest %q is not 64 lowercase hex chars", first)
	}
	if second := Compute(id); second != first {
		t.Errorf("digest changed between calls: %s != %s", first, second)
	}
}

func TestCompute_SetOrderIgnored(t *testing.T) {
	a := dockerIdentity()
	b := dockerIdentity()
	b.Tags = []string{"cleanup", "docker"}
	b.Links = []string{"https://b.example", "https://a.example"}
	a.Links = []string{"https://a.example", "https://b.example"}
	if Compute(a) != Compute(b) {
		t.Error("reordering tags or links must not change the digest")
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	id := dockerIdentity()
	_ = Compute(id)
	if id.Tags[0] != "docker" || id.Tags[1] != "cleanup" {
		t.Errorf("input tags were reordered: %v", id.Tags)
	}
}

func TestCompute_EveryFieldMatters(t *testing.T) {
	base := Compute(dockerIdentity())
	mutations := map[string]func(*Identity){
		"data":       func(id *Identity) { id.Data = []string{"docker rm redis"} },
		"data order": func(id *Identity) { id.Data = []string{"a", "b"} },
		"brief":      func(id *Identity) { id.Brief = "Remove image" },
		"group":      func(id *Identity) { id.Group = "default" },
		"tags":       func(id *Identity) { id.Tags = []string{"docker"} },
		"links":      func(id *Identity) { id.Links = nil },
		"category":   func(id *Identity) { id.Category = "solution" },
		"filename":   func(id *Identity) { id.Filename = "redis.txt" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			id := dockerIdentity()
			mutate(&id)
			if Compute(id) == base {
				t.Errorf("changing %s did not change the digest", name)
			}
		})
	}
}

func TestCompute_DataOrderSignificant(t *testing.T) {
	a := Identity{Data: []string{"first", "second"}, Category: "snippet"}
	b := Identity{Data: []string{"second", "first"}, Category: "snippet"}
	if Compute(a) == Compute(b) {
		t.Error("data line order must be significant")
	}
}

func TestCanonical_FieldBoundaries(t *testing.T) {
	cases := []struct {
		name string
		a, b Identity
	}{
		{
			"brief and group shift",
			Identity{Brief: "ab", Group: ""},
			Identity{Brief: "a", Group: "b"},
		},
		{
			"tag split",
			Identity{Tags: []string{"a,b"}},
			Identity{Tags: []string{"a", "b"}},
		},
		{
			"data joined",
			Identity{Data: []string{"a\nb"}},
			Identity{Data: []string{"a", "b"}},
		},
		{
			"empty list vs empty element",
			Identity{Links: nil},
			Identity{Links: []string{""}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if Canonical(tc.a) == Canonical(tc.b) {
				t.Errorf("distinct identities share canonical form %q", Canonical(tc.a))
			}
		})
	}
}

func TestCompute_EmptyDataWellDefined(t *testing.T) {
	id := Identity{Brief: "only a brief", Category: "snippet"}
	if !hexDigest.MatchString(Compute(id)) {
		t.Error("empty data should still produce a digest")
	}
	if Compute(Identity{}) == Compute(id) {
		t.Error("empty identity must differ from one with a brief")
	}
}

func TestCompute_UnicodeNormalised(t *testing.T) {
	composed := Identity{Brief: "caf\u00e9"}
	decomposed := Identity{Brief: "cafe\u0301"}
	if Compute(composed) != Compute(decomposed) {
		t.Error("NFC and NFD spellings of the same text should share a digest")
	}
}
