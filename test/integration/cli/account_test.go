// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

//go:build integration

package cli_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

type printedAccount struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Nickname      string `json:"nickname"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	Locked        bool   `json:"locked"`
}

// decodeAccount parses the account printed on stdout.
func decodeAccount(output string) printedAccount {
	var acc printedAccount
	ExpectWithOffset(1, json.Unmarshal([]byte(output), &acc)).To(Succeed(), "output: %s", output)
	return acc
}

var _ = Describe("Migrate Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)
	})

	It("applies and reports migrations", func() {
		output := mustRoster(ctx, "migrate", "status")
		Expect(output).To(ContainSubstring("Applied: none"))

		output = mustRoster(ctx, "migrate", "up")
		Expect(output).To(ContainSubstring("Migrations completed successfully"))

		output = mustRoster(ctx, "migrate", "status")
		Expect(output).To(ContainSubstring("(clean)"))
		Expect(output).To(ContainSubstring("000001_accounts"))
		Expect(output).To(ContainSubstring("Pending: none"))
	})

	It("rolls back to an empty schema", func() {
		mustRoster(ctx, "migrate", "up")
		mustRoster(ctx, "migrate", "down")

		var exists bool
		err := env.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'accounts')",
		).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})

var _ = Describe("Account Commands", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)
		mustRoster(ctx, "migrate", "up")
	})

	It("bootstraps the first account as administrator", func() {
		admin := decodeAccount(mustRoster(ctx, "account", "create",
			"--email", "root@example.com", "--nickname", "root", "--password", "R00tPassword"))
		Expect(admin.Role).To(Equal("ADMIN"))
		Expect(admin.EmailVerified).To(BeTrue())

		user := decodeAccount(mustRoster(ctx, "account", "create",
			"--email", "user@example.com", "--password", "Us3rPassword"))
		Expect(user.Role).To(Equal("ANONYMOUS"))
		Expect(user.EmailVerified).To(BeFalse())

		Expect(mustRoster(ctx, "account", "count")).To(ContainSubstring("2"))
	})

	It("verifies, locks and unlocks an account", func() {
		mustRoster(ctx, "account", "create",
			"--email", "root@example.com", "--password", "R00tPassword")
		user := decodeAccount(mustRoster(ctx, "account", "create",
			"--email", "user@example.com", "--nickname", "user", "--password", "Us3rPassword"))

		_, err := roster(ctx, "account", "login", "--email", "user@example.com", "--password", "Us3rPassword")
		Expect(err).To(MatchError(ContainSubstring("email not verified")))

		var token string
		Expect(env.pool.QueryRow(ctx,
			"SELECT verification_token FROM accounts WHERE id = $1", user.ID,
		).Scan(&token)).To(Succeed())
		Expect(mustRoster(ctx, "account", "verify", "user", token)).To(ContainSubstring("verified"))

		for range 5 {
			_, err := roster(ctx, "account", "login", "--email", "user@example.com", "--password", "Wr0ngPassword")
			Expect(err).To(HaveOccurred())
		}
		Expect(decodeAccount(mustRoster(ctx, "account", "get", "user@example.com")).Locked).To(BeTrue())

		mustRoster(ctx, "account", "unlock", user.ID)
		loggedIn := decodeAccount(mustRoster(ctx, "account", "login",
			"--email", "user@example.com", "--password", "Us3rPassword"))
		Expect(loggedIn.Role).To(Equal("AUTHENTICATED"))
	})

	It("deletes an account", func() {
		mustRoster(ctx, "account", "create", "--email", "root@example.com", "--password", "R00tPassword")
		mustRoster(ctx, "account", "create", "--email", "gone@example.com", "--nickname", "gone", "--password", "G0nePassword")

		Expect(mustRoster(ctx, "account", "delete", "gone")).To(ContainSubstring("deleted"))

		_, err := roster(ctx, "account", "get", "gone")
		Expect(err).To(MatchError(ContainSubstring("not found")))
	})
})
