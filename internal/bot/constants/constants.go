package constants

import (
	"time"

	"github.com/disgoorg/disgo/discord"
)

const (
	// SetupCommandName is the owner command that starts the setup wizard.
	SetupCommandName = "setup"

	// AcceptEmoji confirms the current guild/channel in wizard prompts.
	AcceptEmoji = "✅"
	// DeclineEmoji selects "another" in wizard prompts.
	DeclineEmoji = "❎"

	// WizardStepTimeout bounds each wizard wait.
	WizardStepTimeout = 60 * time.Second

	// AlertContentLimit bounds message content in alert embeds.
	AlertContentLimit = 200

	// Severity band colors for alert embeds.
	LowSeverityColor    = 0x2ECC71
	MediumSeverityColor = 0xE67E22
	HighSeverityColor   = 0xE74C3C
)

// BypassPermissions is the set of moderation-capable privileges that exempt
// a member's messages from scoring. Holding any one of them bypasses the
// pipeline entirely.
const BypassPermissions = discord.PermissionAdministrator |
	discord.PermissionBanMembers |
	discord.PermissionKickMembers |
	discord.PermissionManageGuild |
	discord.PermissionManageMessages |
	discord.PermissionManageRoles
