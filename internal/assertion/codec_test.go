package assertion_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
)

func TestAssertion(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Assertion Suite")
}

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func sample() assertion.Assertion {
	discordID := "80351110224678912"
	return assertion.Assertion{
		UserID:          "7f1d3a2e-2c1b-4a57-9d8e-1a2b3c4d5e6f",
		Email:           "nelly@example.com",
		DiscordUserID:   &discordID,
		SelectedGuildID: "41771983423143937",
		Permissions:     permission.Bitflag(1<<63) | permission.ManageTickets,
		SessionID:       "c0ffee00-0000-4000-8000-000000000001",
		ExpiresAt:       time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		Timestamp:       1893553445000,
		Username:        "nelly",
		Discriminator:   "1337",
		AvatarURL:       "https://cdn.discordapp.com/avatars/80351110224678912/8342729096ea3675442027381ff50dfe.png",
		Name:            "Nelly",
	}
}

var _ = Describe("Codec", func() {
	secret := []byte("0123456789abcdef0123456789abcdef")

	Describe("round trip", func() {
		It("decodes exactly what was encoded", func() {
			a := sample()
			payload, sig, err := assertion.Encode(a, secret)
			Expect(err).NotTo(HaveOccurred())

			got, err := assertion.Decode(payload, sig, secret)
			Expect(err).NotTo(HaveOccurred())
			Expect(*got).To(Equal(a))
		})

		It("keeps a null discord id and omits the guild", func() {
			a := sample()
			a.DiscordUserID = nil
			a.SelectedGuildID = ""
			payload, sig, err := assertion.Encode(a, secret)
			Expect(err).NotTo(HaveOccurred())

			raw, err := base64.RawURLEncoding.DecodeString(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(ContainSubstring(`"discordUserId":null`))
			Expect(string(raw)).NotTo(ContainSubstring("selectedGuildId"))

			got, err := assertion.Decode(payload, sig, secret)
			Expect(err).NotTo(HaveOccurred())
			Expect(*got).To(Equal(a))
		})

		It("writes permissions as a decimal string", func() {
			payload, _, err := assertion.Encode(sample(), secret)
			Expect(err).NotTo(HaveOccurred())
			raw, _ := base64.RawURLEncoding.DecodeString(payload)

			var fields map[string]any
			Expect(json.Unmarshal(raw, &fields)).To(Succeed())
			Expect(fields["permissions"]).To(Equal("9223372036854775812"))
		})

		It("is byte-stable for identical content", func() {
			a := sample()
			b := sample()
			p1, s1, _ := assertion.Encode(a, secret)
			p2, s2, _ := assertion.Encode(b, secret)
			Expect(p1).To(Equal(p2))
			Expect(s1).To(Equal(s2))
		})
	})

	Describe("tamper detection", func() {
		It("rejects every single-byte mutation of the payload", func() {
			payload, sig, err := assertion.Encode(sample(), secret)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < len(payload); i++ {
				for _, replacement := range []byte{'A', 'z', '_', '*'} {
					if payload[i] == replacement {
						continue
					}
					mutated := []byte(payload)
					mutated[i] = replacement
					_, err := assertion.Decode(string(mutated), sig, secret)
					Expect(errors.Is(err, assertion.ErrSignature)).To(BeTrue(), "mutation at %d to %q accepted", i, replacement)
				}
			}
		})

		It("rejects a flipped signature nibble", func() {
			payload, sig, _ := assertion.Encode(sample(), secret)
			flipped := []byte(sig)
			if flipped[0] == '0' {
				flipped[0] = '1'
			} else {
				flipped[0] = '0'
			}
			_, err := assertion.Decode(payload, string(flipped), secret)
			Expect(err).To(MatchError(assertion.ErrSignature))
		})

		It("rejects a truncated or non-hex signature", func() {
			payload, sig, _ := assertion.Encode(sample(), secret)
			_, err := assertion.Decode(payload, sig[:len(sig)-2], secret)
			Expect(err).To(MatchError(assertion.ErrSignature))
			_, err = assertion.Decode(payload, strings.Repeat("zz", 32), secret)
			Expect(err).To(MatchError(assertion.ErrSignature))
		})

		It("rejects an extended payload", func() {
			payload, sig, _ := assertion.Encode(sample(), secret)
			_, err := assertion.Decode(payload+string(alphabet[0])+string(alphabet[1]), sig, secret)
			Expect(err).To(MatchError(assertion.ErrSignature))
		})
	})

	Describe("secret mismatch", func() {
		It("rejects a payload signed with another secret", func() {
			payload, sig, _ := assertion.Encode(sample(), secret)
			_, err := assertion.Decode(payload, sig, []byte("another-secret-another-secret-xx"))
			Expect(err).To(MatchError(assertion.ErrSignature))
		})

		It("refuses to work without a secret", func() {
			_, _, err := assertion.Encode(sample(), nil)
			Expect(err).To(MatchError(assertion.ErrEmptySecret))
			_, err = assertion.Decode("e30", "00", nil)
			Expect(err).To(MatchError(assertion.ErrEmptySecret))
		})
	})
})

var _ = Describe("Freshness", func() {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	window := assertion.Freshness{MaxAge: 5 * time.Minute, ClockSkew: 30 * time.Second}

	fresh := func() *assertion.Assertion {
		a := sample()
		a.ExpiresAt = now.Add(time.Hour)
		a.Timestamp = now.Add(-time.Second).UnixMilli()
		return &a
	}

	It("accepts a fresh assertion", func() {
		Expect(fresh().CheckFreshness(now, window)).To(Succeed())
	})

	It("rejects an expired session", func() {
		a := fresh()
		a.ExpiresAt = now.Add(-time.Millisecond)
		Expect(a.CheckFreshness(now, window)).To(MatchError(assertion.ErrExpired))
	})

	It("rejects a missing expiry", func() {
		a := fresh()
		a.ExpiresAt = time.Time{}
		Expect(a.CheckFreshness(now, window)).To(MatchError(assertion.ErrExpired))
	})

	It("rejects an old issuance", func() {
		a := fresh()
		a.Timestamp = now.Add(-6 * time.Minute).UnixMilli()
		Expect(a.CheckFreshness(now, window)).To(MatchError(assertion.ErrExpired))
	})

	It("rejects an issuance from the future beyond skew", func() {
		a := fresh()
		a.Timestamp = now.Add(time.Minute).UnixMilli()
		Expect(a.CheckFreshness(now, window)).To(MatchError(assertion.ErrExpired))
	})
})
