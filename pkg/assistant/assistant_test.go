package assistant_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aidm5e/aidm/pkg/assistant"
	testutils "github.com/aidm5e/aidm/pkg/utils/test"
)

var _ = Describe("Exchange", func() {
	var (
		ctx  context.Context
		fake *testutils.FakeAssistant
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = testutils.NewFakeAssistant()
	})

	It("posts, runs and returns the reply", func() {
		fake.Reply = "the dragon stirs"

		reply, err := assistant.Exchange(ctx, fake, "conv-1", "we open the door")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("the dragon stirs"))
		Expect(fake.Messages["conv-1"]).To(ConsistOf("we open the door"))
	})

	It("propagates client failures", func() {
		fake.Err = errors.New("service down")

		_, err := assistant.Exchange(ctx, fake, "conv-1", "hello")
		Expect(err).To(MatchError("service down"))
	})
})

var _ = Describe("RemoteError", func() {
	It("reports stage, status and body", func() {
		err := &assistant.RemoteError{Stage: "start run", Status: 429, Body: "rate limited"}
		Expect(err.Error()).To(ContainSubstring("start run"))
		Expect(err.Error()).To(ContainSubstring("429"))
		Expect(err.Error()).To(ContainSubstring("rate limited"))
	})
})
