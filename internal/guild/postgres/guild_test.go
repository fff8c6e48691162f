package postgres_test

import (
	"context"
	"testing"

	guildDatamodel "github.com/frahmantamala/guild-dashboard/internal/core/datamodel/guild"
	"github.com/frahmantamala/guild-dashboard/internal/guild"
	guildPostgres "github.com/frahmantamala/guild-dashboard/internal/guild/postgres"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGuildPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Guild Postgres Suite")
}

var _ = Describe("Guild PostgreSQL Repository", func() {
	var (
		db   *gorm.DB
		repo guild.RepositoryAPI
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		err = db.AutoMigrate(&guildDatamodel.Guild{}, &guildDatamodel.Role{}, &guildDatamodel.RoleAssignment{})
		Expect(err).NotTo(HaveOccurred())

		repo = guildPostgres.NewGuildRepository(db)
		ctx = context.Background()
	})

	Describe("EnsureGuild", func() {
		It("inserts an unknown guild", func() {
			Expect(repo.EnsureGuild(ctx, &guild.Guild{ID: "100", Name: "Alpha"})).To(Succeed())

			g, err := repo.GetGuild(ctx, "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(g).NotTo(BeNil())
			Expect(g.Name).To(Equal("Alpha"))
			Expect(g.BotInstalled).To(BeFalse())
		})

		It("leaves an existing guild untouched", func() {
			Expect(repo.EnsureGuild(ctx, &guild.Guild{ID: "100", Name: "Alpha", OwnerDiscordID: "1"})).To(Succeed())
			Expect(repo.EnsureGuild(ctx, &guild.Guild{ID: "100", Name: "Renamed", OwnerDiscordID: "2"})).To(Succeed())

			g, err := repo.GetGuild(ctx, "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Name).To(Equal("Alpha"))
			Expect(g.OwnerDiscordID).To(Equal("1"))
		})

		It("returns nil for a missing guild", func() {
			g, err := repo.GetGuild(ctx, "404")
			Expect(err).NotTo(HaveOccurred())
			Expect(g).To(BeNil())
		})
	})

	Describe("UpdateOwner and SetBotInstalled", func() {
		BeforeEach(func() {
			Expect(repo.EnsureGuild(ctx, &guild.Guild{ID: "100", Name: "Alpha", OwnerDiscordID: "1"})).To(Succeed())
		})

		It("records the new owner and name", func() {
			Expect(repo.UpdateOwner(ctx, "100", "2", "Alpha Prime")).To(Succeed())
			g, _ := repo.GetGuild(ctx, "100")
			Expect(g.OwnerDiscordID).To(Equal("2"))
			Expect(g.Name).To(Equal("Alpha Prime"))
		})

		It("keeps the name when none is given", func() {
			Expect(repo.UpdateOwner(ctx, "100", "2", "")).To(Succeed())
			g, _ := repo.GetGuild(ctx, "100")
			Expect(g.Name).To(Equal("Alpha"))
		})

		It("toggles installation", func() {
			Expect(repo.SetBotInstalled(ctx, "100", true)).To(Succeed())
			g, _ := repo.GetGuild(ctx, "100")
			Expect(g.BotInstalled).To(BeTrue())

			Expect(repo.SetBotInstalled(ctx, "100", false)).To(Succeed())
			g, _ = repo.GetGuild(ctx, "100")
			Expect(g.BotInstalled).To(BeFalse())
		})
	})

	Describe("EnsureDefaultRoles", func() {
		BeforeEach(func() {
			Expect(repo.EnsureGuild(ctx, &guild.Guild{ID: "100", Name: "Alpha"})).To(Succeed())
		})

		It("creates the baseline role set once", func() {
			Expect(repo.EnsureDefaultRoles(ctx, "100")).To(Succeed())
			Expect(repo.EnsureDefaultRoles(ctx, "100")).To(Succeed())

			roles, err := repo.ListRoles(ctx, "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(HaveLen(len(guild.DefaultRoles)))

			admin, err := repo.GetRoleByName(ctx, "100", guild.RoleAdmin)
			Expect(err).NotTo(HaveOccurred())
			Expect(admin.Permissions).To(Equal(permission.All))

			def, err := repo.GetDefaultRole(ctx, "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(def.Name).To(Equal(guild.RoleMember))
			Expect(def.Permissions).To(Equal(permission.None))
		})

		It("does not overwrite edited permissions", func() {
			Expect(repo.EnsureDefaultRoles(ctx, "100")).To(Succeed())
			Expect(db.Model(&guildDatamodel.Role{}).
				Where("guild_id = ? AND name = ?", "100", guild.RoleViewer).
				Update("permissions", int64(permission.ViewDashboard)).Error).To(Succeed())

			Expect(repo.EnsureDefaultRoles(ctx, "100")).To(Succeed())
			viewer, err := repo.GetRoleByName(ctx, "100", guild.RoleViewer)
			Expect(err).NotTo(HaveOccurred())
			Expect(viewer.Permissions).To(Equal(permission.ViewDashboard))
		})

		It("stores the full 64-bit range", func() {
			Expect(repo.EnsureDefaultRoles(ctx, "100")).To(Succeed())
			high := permission.Bitflag(1<<63 | 1)
			Expect(db.Model(&guildDatamodel.Role{}).
				Where("guild_id = ? AND name = ?", "100", guild.RoleSupport).
				Update("permissions", int64(high)).Error).To(Succeed())

			role, err := repo.GetRoleByName(ctx, "100", guild.RoleSupport)
			Expect(err).NotTo(HaveOccurred())
			Expect(role.Permissions).To(Equal(high))
		})

		It("keeps role sets separate per guild", func() {
			Expect(repo.EnsureGuild(ctx, &guild.Guild{ID: "200", Name: "Beta"})).To(Succeed())
			Expect(repo.EnsureDefaultRoles(ctx, "100")).To(Succeed())
			Expect(repo.EnsureDefaultRoles(ctx, "200")).To(Succeed())

			a, _ := repo.GetRoleByName(ctx, "100", guild.RoleAdmin)
			b, _ := repo.GetRoleByName(ctx, "200", guild.RoleAdmin)
			Expect(a.ID).NotTo(Equal(b.ID))
		})
	})

	Describe("assignments", func() {
		var admin, viewer *guild.Role

		BeforeEach(func() {
			Expect(repo.EnsureGuild(ctx, &guild.Guild{ID: "100", Name: "Alpha"})).To(Succeed())
			Expect(repo.EnsureDefaultRoles(ctx, "100")).To(Succeed())
			admin, _ = repo.GetRoleByName(ctx, "100", guild.RoleAdmin)
			viewer, _ = repo.GetRoleByName(ctx, "100", guild.RoleViewer)
		})

		It("assigns a role to an unassigned user", func() {
			created, err := repo.AssignRole(ctx, viewer, "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())

			role, err := repo.GetAssignedRole(ctx, "100", "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(role.Name).To(Equal(guild.RoleViewer))
		})

		It("does not override an existing assignment", func() {
			_, err := repo.AssignRole(ctx, admin, "42")
			Expect(err).NotTo(HaveOccurred())

			created, err := repo.AssignRole(ctx, viewer, "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())

			a, err := repo.GetAssignment(ctx, "100", "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(a.RoleID).To(Equal(admin.ID))
		})

		It("replaces an existing assignment", func() {
			_, err := repo.AssignRole(ctx, viewer, "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.ReplaceAssignment(ctx, admin, "42")).To(Succeed())
			Expect(repo.ReplaceAssignment(ctx, admin, "42")).To(Succeed())

			var count int64
			db.Model(&guildDatamodel.RoleAssignment{}).Where("guild_id = ? AND discord_user_id = ?", "100", "42").Count(&count)
			Expect(count).To(Equal(int64(1)))

			role, err := repo.GetAssignedRole(ctx, "100", "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(role.Name).To(Equal(guild.RoleAdmin))
		})

		It("returns nil for a user without an assignment", func() {
			role, err := repo.GetAssignedRole(ctx, "100", "99")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(BeNil())

			a, err := repo.GetAssignment(ctx, "100", "99")
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(BeNil())
		})
	})
})
