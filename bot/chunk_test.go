package bot

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SplitMessage", func() {
	It("returns nothing for empty input", func() {
		Expect(SplitMessage("", 100)).To(BeEmpty())
		Expect(SplitMessage("   \n  ", 100)).To(BeEmpty())
	})

	It("returns short text as a single chunk", func() {
		Expect(SplitMessage("hello there", 100)).To(Equal([]string{"hello there"}))
	})

	It("keeps text exactly at the limit whole", func() {
		text := strings.Repeat("a", 100)
		Expect(SplitMessage(text, 100)).To(Equal([]string{text}))
	})

	It("splits on newline boundaries when possible", func() {
		text := strings.Repeat("x", 60) + "\n" + strings.Repeat("y", 60)
		chunks := SplitMessage(text, 100)
		Expect(chunks).To(HaveLen(2))
		Expect(chunks[0]).To(Equal(strings.Repeat("x", 60)))
		Expect(chunks[1]).To(Equal(strings.Repeat("y", 60)))
	})

	It("splits on spaces when there are no newlines", func() {
		text := strings.Repeat("word ", 40)
		for _, chunk := range SplitMessage(text, 100) {
			Expect(len(chunk)).To(BeNumerically("<=", 100))
			Expect(chunk).NotTo(HavePrefix(" "))
			Expect(chunk).NotTo(HaveSuffix(" "))
		}
	})

	It("hard-cuts a single unbroken run", func() {
		text := strings.Repeat("a", 250)
		chunks := SplitMessage(text, 100)
		Expect(chunks).To(HaveLen(3))
		Expect(chunks[0]).To(HaveLen(100))
		Expect(chunks[1]).To(HaveLen(100))
		Expect(chunks[2]).To(HaveLen(50))
	})

	It("never loses content", func() {
		text := "The goblin chief snarls.\n\n" + strings.Repeat("Roll for initiative! ", 150)
		chunks := SplitMessage(text, MaxMessageLength)

		var total int
		for _, chunk := range chunks {
			Expect(len([]rune(chunk))).To(BeNumerically("<=", MaxMessageLength))
			total += len(strings.Fields(chunk))
		}
		Expect(total).To(Equal(len(strings.Fields(text))))
	})

	It("counts runes, not bytes", func() {
		text := strings.Repeat("é", 150)
		chunks := SplitMessage(text, 100)
		Expect(chunks).To(HaveLen(2))
		Expect([]rune(chunks[0])).To(HaveLen(100))
		Expect([]rune(chunks[1])).To(HaveLen(50))
	})

	It("defaults the limit when given zero", func() {
		text := strings.Repeat("a", MaxMessageLength+10)
		chunks := SplitMessage(text, 0)
		Expect(chunks).To(HaveLen(2))
		Expect(chunks[0]).To(HaveLen(MaxMessageLength))
	})
})
