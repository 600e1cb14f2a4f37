package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/y86sim/config"
	"github.com/sarchlab/y86sim/timing/cache"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	It("should provide defaults", func() {
		c := config.Default()

		Expect(c.MaxCycles).To(Equal(uint64(10000)))
		Expect(c.EntryPC).To(BeZero())
		Expect(c.TraceDir).To(BeEmpty())
		Expect(c.Level()).To(Equal(logrus.WarnLevel))
		Expect(c.DataCache.Enabled).To(BeFalse())
		Expect(c.DataCache.Config).To(Equal(cache.DefaultConfig()))
		Expect(c.Validate()).To(Succeed())
	})

	Describe("Load", func() {
		It("should read JSON and keep defaults for missing fields", func() {
			path := write("sim.json", `{"max_cycles": 500, "log_level": "debug"}`)

			c, err := config.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(c.MaxCycles).To(Equal(uint64(500)))
			Expect(c.Level()).To(Equal(logrus.DebugLevel))
			Expect(c.DataCache.Size).To(Equal(cache.DefaultConfig().Size))
		})

		It("should read YAML", func() {
			path := write("sim.yaml", `
max_cycles: 0
entry_pc: 16
trace_dir: traces
data_cache:
  enabled: true
  size: 256
  associativity: 4
  block_size: 8
`)

			c, err := config.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(c.MaxCycles).To(BeZero())
			Expect(c.EntryPC).To(Equal(int32(16)))
			Expect(c.TraceDir).To(Equal("traces"))
			Expect(c.DataCache.Enabled).To(BeTrue())
			Expect(c.DataCache.Config).To(Equal(cache.Config{
				Size:          256,
				Associativity: 4,
				BlockSize:     8,
			}))
		})

		It("should fail on a missing file", func() {
			_, err := config.Load(filepath.Join(dir, "none.json"))

			Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
		})

		It("should fail on malformed input", func() {
			path := write("bad.json", `{"max_cycles": "many"}`)

			_, err := config.Load(path)

			Expect(err).To(MatchError(ContainSubstring("failed to parse config")))
		})

		It("should fail on invalid values", func() {
			path := write("bad.yml", "log_level: loud\n")

			_, err := config.Load(path)

			Expect(err).To(MatchError(ContainSubstring("log_level")))
		})
	})

	Describe("Save", func() {
		It("should round-trip through JSON", func() {
			c := config.Default()
			c.MaxCycles = 42
			c.TraceDir = "out"
			path := filepath.Join(dir, "sim.json")

			Expect(c.Save(path)).To(Succeed())
			loaded, err := config.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should round-trip through YAML", func() {
			c := config.Default()
			c.EntryPC = 8
			c.DataCache.Enabled = true
			path := filepath.Join(dir, "sim.yaml")

			Expect(c.Save(path)).To(Succeed())
			loaded, err := config.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})
	})

	Describe("Validate", func() {
		It("should reject a negative entry address", func() {
			c := config.Default()
			c.EntryPC = -4

			Expect(c.Validate()).To(MatchError(ContainSubstring("entry_pc")))
		})

		It("should check the data cache only when it is enabled", func() {
			c := config.Default()
			c.DataCache.Size = 100

			Expect(c.Validate()).To(Succeed())

			c.DataCache.Enabled = true
			Expect(c.Validate()).To(MatchError(ContainSubstring("data_cache")))
		})
	})

	It("should fall back to warning for an unknown level", func() {
		c := config.Default()
		c.LogLevel = "chatty"

		Expect(c.Level()).To(Equal(logrus.WarnLevel))
	})

	It("should clone independently", func() {
		c := config.Default()
		clone := c.Clone()
		clone.MaxCycles = 1

		Expect(c.MaxCycles).To(Equal(uint64(10000)))
	})
})
