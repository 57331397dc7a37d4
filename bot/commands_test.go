package bot

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aidm5e/aidm/pkg/assistant"
	"github.com/aidm5e/aidm/pkg/routing"
)

var _ = Describe("commandDefinitions", func() {
	It("defines unique command names", func() {
		seen := map[string]bool{}
		for _, def := range commandDefinitions() {
			Expect(seen[def.Name]).To(BeFalse(), "duplicate command %q", def.Name)
			seen[def.Name] = true
		}
	})

	It("has a handler for every definition", func() {
		b := &Bot{}
		handlers := b.commandHandlers()
		for _, def := range commandDefinitions() {
			Expect(handlers).To(HaveKey(def.Name))
		}
	})

	It("has a definition for every handler", func() {
		defs := map[string]bool{}
		for _, def := range commandDefinitions() {
			defs[def.Name] = true
		}
		b := &Bot{}
		for name := range b.commandHandlers() {
			Expect(defs).To(HaveKey(name))
		}
	})

	It("stays within Discord's naming rules", func() {
		for _, def := range commandDefinitions() {
			Expect(len(def.Name)).To(BeNumerically("<=", 32))
			Expect(def.Name).To(MatchRegexp(`^[a-z-]+$`))
			Expect(def.Description).NotTo(BeEmpty())
		}
	})
})

var _ = Describe("userMessage", func() {
	It("lists available memories for an unknown slot", func() {
		err := &routing.MemoryNotFoundError{Name: "heist", Available: []string{"gameplay", "out-of-game"}}
		msg := userMessage(err)
		Expect(msg).To(ContainSubstring(`"heist"`))
		Expect(msg).To(ContainSubstring("gameplay, out-of-game"))
	})

	It("suggests init for an unrouted category", func() {
		err := &routing.UnknownCategoryError{ID: "100"}
		Expect(userMessage(err)).To(ContainSubstring("/init-memory"))
	})

	It("suggests init for an unrouted channel", func() {
		err := &routing.UnknownChannelError{CategoryID: "100", ID: "777"}
		Expect(userMessage(err)).To(ContainSubstring("/init-memory"))
	})

	It("suggests assign for an unassigned record", func() {
		err := fmt.Errorf("channel 777: %w", routing.ErrNotAssigned)
		msg := userMessage(err)
		Expect(msg).To(ContainSubstring("/assign-memory"))
		Expect(msg).NotTo(ContainSubstring("/init-memory"))
	})

	It("explains reserved memory deletion", func() {
		err := fmt.Errorf("wrapped: %w", routing.ErrReservedMemory)
		Expect(userMessage(err)).To(ContainSubstring("reserved"))
	})

	It("surfaces assistant timeouts", func() {
		err := fmt.Errorf("wrapped: %w", assistant.ErrRunTimeout)
		Expect(userMessage(err)).To(ContainSubstring("too long"))
	})

	It("stays generic for anything else", func() {
		Expect(userMessage(errors.New("boom"))).To(ContainSubstring("Something went wrong"))
	})
})
