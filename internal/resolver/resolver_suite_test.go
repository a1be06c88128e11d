package resolver_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/loader"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

func TestResolverSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Resolver Suite")
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

var _ = Describe("Resolver", func() {
	var (
		fsys afero.Fs
		r    *resolver.Resolver
	)

	write := func(path, content string) {
		Expect(afero.WriteFile(fsys, path, []byte(content), 0o644)).To(Succeed())
	}

	newResolver := func(data resolver.Data) *resolver.Resolver {
		nop := zerolog.Nop()
		return resolver.New(resolver.Options{
			Data:    data,
			Loader:  loader.New(fsys),
			BaseDir: "/proj",
			Logger:  &nop,
		})
	}

	BeforeEach(func() {
		fsys = afero.NewMemMapFs()
		r = newResolver(resolver.Data{})
	})

	Describe("configs without extends", func() {
		It("returns an equal but distinct copy", func() {
			cfg := types.MustParseJSON(`{"a": {"b": [1, 2]}, "plugins": [{"name": "p"}, {"name": "q"}]}`)

			got, err := r.Resolve(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(types.Equal(got, cfg)).To(BeTrue())
			Expect(got).NotTo(BeIdenticalTo(cfg))
		})

		It("still applies defaults", func() {
			r.SetResolverData(resolver.Data{DefaultValues: types.MustParseJSON(`{"d": true}`)})

			got, err := r.Resolve(types.MustParseJSON(`{"a": 1}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(marshal(got)).To(MatchJSON(`{"a": 1, "d": true}`))
		})
	})

	Describe("precedence", func() {
		BeforeEach(func() {
			write("/proj/a.json", `{"all": "a", "ab": "a"}`)
			write("/proj/b.json", `{"all": "b", "ab": "b", "b": "b"}`)
		})

		It("prefers the child, then the leftmost sibling", func() {
			got, err := r.Resolve(types.MustParseJSON(`{"extends": ["./a.json", "./b.json"], "all": "child"}`))
			Expect(err).NotTo(HaveOccurred())

			all, _ := got.GetString("all")
			ab, _ := got.GetString("ab")
			b, _ := got.GetString("b")
			Expect(all).To(Equal("child"))
			Expect(ab).To(Equal("a"))
			Expect(b).To(Equal("b"))
		})

		It("records the chain in load order", func() {
			got, err := r.Resolve(types.MustParseJSON(`{"extends": ["./a.json", "./b.json"]}`))
			Expect(err).NotTo(HaveOccurred())

			ext, _ := got.Get("extends")
			Expect(ext).To(Equal([]any{"/proj/b.json", "/proj/a.json"}))
		})
	})

	Describe("cycles", func() {
		It("resolves mutually extending configs once each", func() {
			write("/proj/a.json", `{"extends": "./b.json", "a": 1}`)
			write("/proj/b.json", `{"extends": "./a.json", "b": 2}`)

			res, err := r.RunFile("a.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Chain).To(Equal([]string{"/proj/b.json", "/proj/a.json"}))
			Expect(marshal(res.Config)).To(MatchJSON(
				`{"a": 1, "b": 2, "extends": ["/proj/b.json", "/proj/a.json"]}`))
		})
	})

	Describe("plugins", func() {
		It("orders earliest-extended first with the child's entry replacing the parent's", func() {
			write("/proj/parent.json", `{"plugins": [{"name": "y"}, {"name": "x", "opt": 1}]}`)

			got, err := r.Resolve(types.MustParseJSON(`{"extends": "./parent.json", "plugins": [{"name": "x"}]}`))
			Expect(err).NotTo(HaveOccurred())

			plugins, _ := got.Get("plugins")
			Expect(marshal(plugins)).To(MatchJSON(`[{"name": "y"}, {"name": "x"}]`))
		})
	})

	Describe("upgrade-merge keys", func() {
		It("promotes single values and merges by union", func() {
			r.SetResolverData(resolver.Data{UpgradeMergeList: []string{"tags"}})
			write("/proj/parent.json", `{"tags": ["a", "b"]}`)

			got, err := r.Resolve(types.MustParseJSON(`{"extends": "./parent.json", "tags": "a"}`))
			Expect(err).NotTo(HaveOccurred())

			tags, _ := got.Get("tags")
			Expect(tags).To(Equal([]any{"a", "b"}))
		})
	})

	Describe("defaults", func() {
		It("never replaces explicitly set falsy values", func() {
			r.SetResolverData(resolver.Data{DefaultValues: types.MustParseJSON(`{"enabled": true, "n": 1, "s": "x"}`)})

			got, err := r.Resolve(types.MustParseJSON(`{"enabled": false, "n": 0, "s": ""}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(marshal(got)).To(MatchJSON(`{"enabled": false, "n": 0, "s": ""}`))
		})
	})

	Describe("load failures", func() {
		It("report every identifier loaded so far", func() {
			write("/proj/one.json", `{"extends": "./two.json"}`)
			write("/proj/two.json", `{"extends": "./three.json"}`)

			_, err := r.Resolve(types.MustParseJSON(`{"extends": "./one.json"}`))
			Expect(err).To(MatchError(loader.ErrNotFound))
			Expect(err.Error()).To(ContainSubstring("[/proj/one.json, /proj/two.json, /proj/three.json]"))

			var eerr *resolver.ExtendsError
			Expect(err).To(BeAssignableToTypeOf(eerr))
		})
	})

	Describe("end to end", func() {
		It("resolves a relative extends with defaults", func() {
			nop := zerolog.Nop()
			write("base.json", `{"a": 1}`)
			r = resolver.New(resolver.Options{
				Data:   resolver.Data{DefaultValues: types.MustParseJSON(`{"b": 2}`)},
				Loader: loader.New(fsys),
				Logger: &nop,
			})

			got, err := r.Resolve(types.MustParseJSON(`{"extends": "./base.json"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(marshal(got)).To(MatchJSON(`{"extends": ["./base.json"], "a": 1, "b": 2}`))
		})
	})
})
