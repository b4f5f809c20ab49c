package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultClassifier() *Classifier {
	return New(DefaultRules())
}

func TestClassifyBlocked(t *testing.T) {
	c := defaultClassifier()
	tests := []struct {
		command string
		reason  BlockReason
	}{
		{"rm -rf /", DestructivePath},
		{"rm -rf /*", DestructivePath},
		{"rm -rf /etc", DestructivePath},
		{"rm -fr /var/log", DestructivePath},
		{"rm -r -f /", DestructivePath},
		{"rm -rf ~", DestructivePath},
		{"rm -rf ~/", DestructivePath},
		{"rm -rf *", DestructivePath},
		{"cd /tmp && rm -rf /", DestructivePath},

		{"mkfs /dev/sda", FilesystemFormat},
		{"mkfs.ext4 /dev/sdb1", FilesystemFormat},
		{"dd if=/dev/zero of=/dev/sda", FilesystemFormat},
		{"echo boom > /dev/sda", FilesystemFormat},
		{"cat image.iso > /dev/nvme0n1", FilesystemFormat},
		{"fdisk /dev/sda", FilesystemFormat},

		{"sudo apt update", PrivilegedInvocation},
		{"ls; sudo rm x", PrivilegedInvocation},
		{"su root", PrivilegedInvocation},
		{"su", PrivilegedInvocation},
		{"doas pkg_add vim", PrivilegedInvocation},
		{"pkexec visudo", PrivilegedInvocation},

		{"shutdown -h now", SystemPowerControl},
		{"reboot", SystemPowerControl},
		{"halt", SystemPowerControl},
		{"poweroff", SystemPowerControl},
		{"init 0", SystemPowerControl},
		{"init 6", SystemPowerControl},
		{"systemctl poweroff", SystemPowerControl},

		{":(){ :|:& };:", ForkBomb},
		{":(){:|:&};:", ForkBomb},
		{"bomb(){ bomb|bomb& };bomb", ForkBomb},

		{"rm /etc/passwd", CriticalPathMutation},
		{"mv /etc /tmp/etc", CriticalPathMutation},
		{"chmod 000 /usr/bin", CriticalPathMutation},
		{"echo x > /etc/hosts", CriticalPathMutation},
		{"tee /boot/grub.cfg", CriticalPathMutation},
		{"mv /home /backup", CriticalPathMutation},
		{"chmod -R 777 /", CriticalPathMutation},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			v := c.Classify(tt.command)
			require.Equal(t, Blocked, v.Outcome)
			assert.Equal(t, tt.reason, v.Reason)
			assert.NotEmpty(t, v.Rule)
		})
	}
}

func TestClassifyApproved(t *testing.T) {
	c := defaultClassifier()
	commands := []string{
		"ls -la",
		"pwd",
		"echo hello",
		"cat /etc/hostname",
		"grep -r TODO .",
		"df -h",
		"rm build/output.log",
		"rm -rf ./build",
		"rm -rf node_modules",
		"find . -name '*.go'",
		"git status",
		"chmod +x script.sh",
		"mkdir -p /tmp/scratch",
		"uname -a",
		"ps aux | grep nginx",
	}
	for _, cmd := range commands {
		t.Run(cmd, func(t *testing.T) {
			v := c.Classify(cmd)
			assert.Equal(t, Approved, v.Outcome)
			assert.Empty(t, v.Reason)
			assert.Empty(t, v.Rule)
		})
	}
}

// First matching rule determines the reason: a chained command that is both
// privileged and destructive reports the destructive rule, which runs first.
func TestClassifyFirstMatchWins(t *testing.T) {
	c := defaultClassifier()
	v := c.Classify("sudo rm -rf /")
	require.Equal(t, Blocked, v.Outcome)
	assert.Equal(t, DestructivePath, v.Reason)
	assert.Equal(t, "rm-recursive-root", v.Rule)
}

func TestClassifyEmptyInput(t *testing.T) {
	c := defaultClassifier()
	for _, in := range []string{"", "   ", "\t\n"} {
		v := c.Classify(in)
		assert.Equal(t, Approved, v.Outcome)
	}
}

func TestClassifyChainNotDecomposed(t *testing.T) {
	c := defaultClassifier()
	// Chain operators do not hide a dangerous substring.
	tests := []string{
		"echo ok && sudo reboot",
		"true || rm -rf /",
		"ls | tee /etc/shadow",
	}
	for _, cmd := range tests {
		v := c.Classify(cmd)
		assert.Equal(t, Blocked, v.Outcome, "command %q", cmd)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  ls   -la  ", "ls -la"},
		{"echo\thello\nworld", "echo hello world"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Classification must be insensitive to case where the danger is.
func TestClassifyCaseFolding(t *testing.T) {
	c := defaultClassifier()
	v := c.Classify("SUDO apt update")
	assert.Equal(t, Blocked, v.Outcome)
	assert.Equal(t, PrivilegedInvocation, v.Reason)
}
