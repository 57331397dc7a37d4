package routing_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aidm5e/aidm/pkg/logger"
	"github.com/aidm5e/aidm/pkg/routing"
)

var _ = Describe("AlwaysOnIndex", func() {
	var index *routing.AlwaysOnIndex

	BeforeEach(func() {
		index = routing.NewAlwaysOnIndex()
	})

	It("flags and unflags channels", func() {
		Expect(index.Contains("200")).To(BeFalse())

		index.Set("200", true)
		Expect(index.Contains("200")).To(BeTrue())
		Expect(index.Len()).To(Equal(1))

		index.Set("200", false)
		Expect(index.Contains("200")).To(BeFalse())
		Expect(index.Len()).To(BeZero())
	})

	It("normalizes ids on lookup", func() {
		index.Set(" 200 ", true)
		Expect(index.Contains("200")).To(BeTrue())
		Expect(index.Contains("200\n")).To(BeTrue())
	})

	It("rebuilds wholesale from a document", func() {
		index.Set("999", true)

		index.Rebuild(routing.Document{
			"100": {
				Channels: map[string]*routing.Channel{
					"200": {AlwaysOn: true},
					"201": {},
				},
			},
		})

		Expect(index.Contains("200")).To(BeTrue())
		Expect(index.Contains("201")).To(BeFalse())
		Expect(index.Contains("999")).To(BeFalse())
	})
})

var _ = Describe("Watcher", func() {
	It("rebuilds the index when the document changes on disk", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "routes.json")
		store := routing.NewStore(path, logger.Nop())
		index := routing.NewAlwaysOnIndex()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = routing.NewWatcher(store, index, logger.Nop()).Run(ctx)
		}()

		// Give the watcher a moment to register before writing.
		time.Sleep(100 * time.Millisecond)

		Expect(store.Save(routing.Document{
			"100": {
				Channels: map[string]*routing.Channel{
					"200": {Name: "tavern", AlwaysOn: true},
				},
			},
		})).To(Succeed())

		Eventually(func() bool {
			return index.Contains("200")
		}, 3*time.Second, 20*time.Millisecond).Should(BeTrue())

		cancel()
		Eventually(done, 3*time.Second).Should(BeClosed())
	})

	It("ignores sibling files in the directory", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "routes.json")
		store := routing.NewStore(path, logger.Nop())
		index := routing.NewAlwaysOnIndex()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			_ = routing.NewWatcher(store, index, logger.Nop()).Run(ctx)
		}()
		time.Sleep(100 * time.Millisecond)

		Expect(os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644)).To(Succeed())

		Consistently(func() int {
			return index.Len()
		}, 300*time.Millisecond, 50*time.Millisecond).Should(BeZero())
	})
})
