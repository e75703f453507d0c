// Package invitesdk is a Go client for the invitation service API, and the
// home of the request and response types the server encodes.
//
// Minting invitations needs a session token, which the bootstrap call (or a
// redemption) hands out:
//
//	c := invitesdk.NewClient("https://invite.example.com")
//	boot, err := c.Bootstrap(ctx, bootstrapToken, invitesdk.BootstrapRequest{
//		Username: "admin",
//		Email:    "admin@example.com",
//		Password: "correct horse battery staple",
//	})
//	if err != nil {
//		return err
//	}
//
//	admin := c.WithToken(boot.SessionToken)
//	inv, err := admin.CreateInvitation(ctx, invitesdk.InvitationRequest{
//		Username: "alice",
//		Email:    "alice@example.com",
//	})
package invitesdk
