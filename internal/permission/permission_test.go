package permission_test

import (
	"encoding/json"
	"math/bits"
	"math/rand"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/guild-dashboard/internal/permission"
)

func TestPermission(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Permission Suite")
}

var _ = Describe("Bitflag", func() {
	Describe("registry", func() {
		It("gives every named permission exactly one unique bit", func() {
			seen := permission.None
			names := map[string]bool{}
			for _, p := range permission.Named {
				Expect(bits.OnesCount64(uint64(p.Flag))).To(Equal(1), p.Name)
				Expect(seen&p.Flag).To(BeZero(), "bit reused by %s", p.Name)
				Expect(names).NotTo(HaveKey(p.Name))
				seen |= p.Flag
				names[p.Name] = true
			}
			Expect(seen).To(Equal(permission.All))
		})
	})

	Describe("Grant and Has", func() {
		It("contains both operands after composition", func() {
			r := rand.New(rand.NewSource(42))
			for i := 0; i < 500; i++ {
				f1 := permission.Bitflag(r.Uint64())
				f2 := permission.Bitflag(r.Uint64())
				if f1 == 0 || f2 == 0 {
					continue
				}
				combined := permission.Grant(f1, f2)
				Expect(permission.Has(combined, f1)).To(BeTrue())
				Expect(permission.Has(combined, f2)).To(BeTrue())
				Expect(permission.Grant(f2, f1)).To(Equal(combined))
			}
		})

		It("requires exact containment", func() {
			b := permission.Grant(permission.ViewTickets, permission.ViewDashboard)
			Expect(b.Has(permission.ViewTickets)).To(BeTrue())
			Expect(b.Has(permission.ViewTickets | permission.ManageTickets)).To(BeFalse())
			Expect(permission.HasAny(b, permission.ViewTickets|permission.ManageTickets)).To(BeTrue())
		})

		It("never grants an empty requirement", func() {
			Expect(permission.Has(permission.All, permission.None)).To(BeFalse())
		})

		It("removes bits on revoke", func() {
			b := permission.Revoke(permission.All, permission.ManageRoles)
			Expect(b.Has(permission.ManageRoles)).To(BeFalse())
			Expect(b.Has(permission.ManageTickets)).To(BeTrue())
		})
	})

	Describe("text encoding", func() {
		It("encodes as a decimal JSON string without precision loss", func() {
			b := permission.Bitflag(1<<63 | 1)
			raw, err := json.Marshal(struct {
				P permission.Bitflag `json:"p"`
			}{b})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal(`{"p":"9223372036854775809"}`))

			var out struct {
				P permission.Bitflag `json:"p"`
			}
			Expect(json.Unmarshal(raw, &out)).To(Succeed())
			Expect(out.P).To(Equal(b))
		})

		It("parses hex", func() {
			b, err := permission.Parse("0x41")
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(Equal(permission.ViewDashboard | permission.ManageRoles))
		})

		It("rejects garbage", func() {
			_, err := permission.Parse("lots")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("names", func() {
		It("round-trips through names", func() {
			b, err := permission.FromNames("view_tickets", "manage_roles")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Names()).To(Equal([]string{"view_tickets", "manage_roles"}))
		})

		It("fails on unknown names", func() {
			_, err := permission.FromNames("launch_rockets")
			Expect(err).To(MatchError(ContainSubstring("launch_rockets")))
		})
	})

	Describe("DiscordPermissions", func() {
		It("detects manage guild", func() {
			Expect(permission.ParseDiscordPermissions("32").CanManageGuild()).To(BeTrue())
			Expect(permission.ParseDiscordPermissions("8").CanManageGuild()).To(BeFalse())
			Expect(permission.ParseDiscordPermissions("8").IsAdministrator()).To(BeTrue())
			Expect(permission.ParseDiscordPermissions("not-a-number")).To(BeZero())
		})
	})
})
