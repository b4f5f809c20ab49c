package classify

import "regexp"

// Rule is a single named blocklist pattern. Rules are matched against the
// normalized command string, case-insensitively, without decomposing chain
// operators: a dangerous substring blocks the whole submission no matter what
// surrounds it.
type Rule struct {
	ID          string
	Reason      BlockReason
	Description string
	Pattern     *regexp.Regexp
}

func mustRule(id string, reason BlockReason, desc, expr string) Rule {
	return Rule{
		ID:          id,
		Reason:      reason,
		Description: desc,
		Pattern:     regexp.MustCompile(`(?i)` + expr),
	}
}

// chainStart matches the start of the string or a position right after a
// chaining operator, so prefix commands are caught anywhere in a chain.
const chainStart = `(?:^|[\s;&|])`

// criticalDirs are the system directories whose mutation is always blocked.
const criticalDirs = `(?:etc|bin|sbin|usr|lib|lib64|boot|sys|proc)`

// DefaultRules returns the rule table shipped with the system. The order is
// fixed and significant: the first matching rule determines the block reason.
// The table is built once at startup and passed to New; it is not editable at
// runtime.
func DefaultRules() []Rule {
	return []Rule{
		mustRule("rm-recursive-root", DestructivePath,
			"recursive/forced deletion of root, root-level paths, home, or bare wildcard",
			`rm\s+(?:-[\w-]+\s+)*-[a-z]*r[a-z]*(?:\s+-[\w-]+)*\s+(?:--\s+)?(?:/+\*?|/[\w.@-]+\S*|\*|~(?:/\S*)?)(?:[\s;&|]|$)`),

		mustRule("mkfs", FilesystemFormat,
			"creating or rewriting a filesystem",
			`\bmkfs(?:\.\w+)?\b`),
		mustRule("dd-input", FilesystemFormat,
			"raw dd duplication onto disks or files",
			`\bdd\s+(?:\S+\s+)*if=`),
		mustRule("block-device-write", FilesystemFormat,
			"redirecting output onto a block device",
			`>\s*/dev/(?:sd[a-z]\S*|hd[a-z]\S*|nvme\S+|mmcblk\S+)`),
		mustRule("fdisk", FilesystemFormat,
			"repartitioning a disk",
			`\bfdisk\s+/dev/`),

		mustRule("sudo", PrivilegedInvocation,
			"privilege escalation via sudo",
			chainStart+`sudo\b`),
		mustRule("su", PrivilegedInvocation,
			"switching user via su",
			chainStart+`su(?:\s|$)`),
		mustRule("doas", PrivilegedInvocation,
			"privilege escalation via doas",
			chainStart+`doas\b`),
		mustRule("pkexec", PrivilegedInvocation,
			"privilege escalation via pkexec",
			chainStart+`pkexec\b`),

		mustRule("power-command", SystemPowerControl,
			"shutdown, reboot, halt, or poweroff",
			chainStart+`(?:shutdown|reboot|halt|poweroff)\b`),
		mustRule("init-runlevel", SystemPowerControl,
			"power-state change via init",
			chainStart+`init\s+[06](?:\s|$)`),
		mustRule("systemctl-power", SystemPowerControl,
			"power-state change via systemctl",
			`\bsystemctl\s+(?:poweroff|reboot|halt|suspend|hibernate)\b`),

		mustRule("fork-bomb-canonical", ForkBomb,
			"the canonical :(){ :|:& };: fork bomb",
			`:\(\)\s*\{.*\}`),
		mustRule("fork-bomb-structural", ForkBomb,
			"function body piping into itself in the background, invoked immediately",
			`[\w:]+\s*\(\)\s*\{[^}]*\|[^}]*&[^}]*\}\s*;?\s*[\w:]+`),

		mustRule("critical-dir-mutation", CriticalPathMutation,
			"write, move, delete, or permission change under a critical system directory",
			`\b(?:rm|mv|cp|chmod|chown|truncate|tee|ln)\b[^;&|]*\s/`+criticalDirs+`(?:/|[\s;&|]|$)`),
		mustRule("critical-dir-redirect", CriticalPathMutation,
			"redirecting output into a critical system directory",
			`>>?\s*/`+criticalDirs+`/`),
		mustRule("move-system-dir", CriticalPathMutation,
			"relocating a top-level system directory",
			`\bmv\s+/(?:home|etc|usr|var|bin|sbin)(?:/|\s|$)`),
		mustRule("chmod-root", CriticalPathMutation,
			"changing permissions of the filesystem root",
			`\bchmod\s+(?:-[\w-]+\s+)*[0-7]{3,4}\s+/+(?:[\s;&|]|$)`),
	}
}
