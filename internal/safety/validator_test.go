package safety

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestProtectedPathBlocking verifies protected paths are blocked
func TestProtectedPathBlocking(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"root slash", "/", true},
		{"etc", "/etc", true},
		{"etc subdir", "/etc/ssh", true},
		{"bin", "/bin", true},
		{"bin file", "/bin/bash", true},
		{"usr", "/usr", true},
		{"usr local", "/usr/local", true},
		{"boot", "/boot", true},
		{"boot grub", "/boot/grub2", true},
		{"lib", "/lib", true},
		{"lib64", "/lib64", true},
		{"sbin", "/sbin", true},
		{"proc", "/proc/1/status", true},
		{"xcleanup config", "/etc/xcleanup", true},
		{"xcleanup config file", "/etc/xcleanup/config.yaml", true},
		{"xcleanup state", "/var/lib/xcleanup", true},
		{"xcleanup state file", "/var/lib/xcleanup/state.json", true},
		{"libexec is not lib", "/libexec", false},
		{"tmp allowed", "/tmp", false},
		{"tmp file", "/tmp/file.txt", false},
		{"var tmp", "/var/tmp", false},
		{"home", "/home", false},
		{"home user", "/home/user", false},
	}

	protected := defaultProtected(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsProtectedPath(tt.path, protected)
			if result != tt.expected {
				t.Errorf("IsProtectedPath(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestWildcardProtectedPaths verifies configured glob patterns protect the
// matched path and everything beneath it.
func TestWildcardProtectedPaths(t *testing.T) {
	protected := defaultProtected([]string{"/home/*/.ssh", "/srv/data/keep-?", "/opt/app/pinned"})

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"ssh dir", "/home/alice/.ssh", true},
		{"ssh key", "/home/alice/.ssh/id_ed25519", true},
		{"other dotdir", "/home/alice/.cache/x", false},
		{"single char wildcard", "/srv/data/keep-1", true},
		{"single char wildcard child", "/srv/data/keep-1/file", true},
		{"single char wildcard miss", "/srv/data/keep-10x", false},
		{"literal extra", "/opt/app/pinned/file", true},
		{"literal extra sibling", "/opt/app/pinned2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsProtectedPath(tt.path, protected)
			if result != tt.expected {
				t.Errorf("IsProtectedPath(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestAllowedRootEnforcement verifies paths are restricted to allowed roots
func TestAllowedRootEnforcement(t *testing.T) {
	allowed := []string{"/tmp/allowed", "/var/cleanup"}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"inside allowed tmp", "/tmp/allowed/file.txt", true},
		{"inside allowed var", "/var/cleanup/old.log", true},
		{"allowed root exact", "/tmp/allowed", true},
		{"outside allowed", "/tmp/notallowed/file.txt", false},
		{"parent of allowed", "/tmp", false},
		{"completely different", "/home/user/file.txt", false},
		{"root", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsWithinAllowedRoots(tt.path, allowed)
			if result != tt.expected {
				t.Errorf("IsWithinAllowedRoots(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestPathNormalization verifies paths are normalized correctly
func TestPathNormalization(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"absolute path", "/tmp/file.txt", false},
		{"relative path", "file.txt", false},
		{"path with dots", "/tmp/./file.txt", false},
		{"empty path", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormalizePath(tt.path)
			if tt.expectError {
				if err == nil {
					t.Errorf("NormalizePath(%s) expected error, got nil", tt.path)
				}
				return
			}
			if err != nil {
				t.Errorf("NormalizePath(%s) unexpected error: %v", tt.path, err)
			}
			if !filepath.IsAbs(result) {
				t.Errorf("NormalizePath(%s) = %s, expected absolute path", tt.path, result)
			}
		})
	}
}

// TestTraversalDetection verifies ".." segments are detected
func TestTraversalDetection(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"normal path", "/tmp/file.txt", false},
		{"dotdot parent", "/tmp/../etc/passwd", true},
		{"dotdot at start", "../etc/passwd", true},
		{"dotdot at end", "/tmp/..", true},
		{"single dot ok", "/tmp/./file", false},
		{"dots in name ok", "/tmp/..hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectTraversal(tt.path)
			if result != tt.expected {
				t.Errorf("DetectTraversal(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestValidateDeleteTarget covers the full contract in evaluation order.
func TestValidateDeleteTarget(t *testing.T) {
	tmpDir := t.TempDir()
	allowedDir := filepath.Join(tmpDir, "allowed")
	outsideDir := filepath.Join(tmpDir, "outside")

	for _, d := range []string{allowedDir, outsideDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
	}

	insideFile := filepath.Join(allowedDir, "delete_me.txt")
	outsideFile := filepath.Join(outsideDir, "keep_me.txt")
	pinned := filepath.Join(allowedDir, "pinned")

	validator := NewValidator([]string{allowedDir}, []string{pinned})

	tests := []struct {
		name        string
		path        string
		expectError error
	}{
		{"allowed file", insideFile, nil},
		{"outside allowed", outsideFile, ErrOutsideAllowed},
		{"protected /etc", "/etc/passwd", ErrProtectedPath},
		{"protected /bin", "/bin/sh", ErrProtectedPath},
		{"protected root", "/", ErrProtectedPath},
		{"configured protected", filepath.Join(pinned, "x"), ErrProtectedPath},
		{"traversal attempt", allowedDir + "/../outside/keep_me.txt", ErrTraversal},
		{"empty path", "", ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDeleteTarget(tt.path)
			if tt.expectError == nil {
				if err != nil {
					t.Errorf("ValidateDeleteTarget(%s) unexpected error: %v", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.expectError) {
				t.Errorf("ValidateDeleteTarget(%s) = %v, expected %v", tt.path, err, tt.expectError)
			}
		})
	}
}

// TestHasPathPrefix verifies the path prefix checking logic
func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{"exact match", "/tmp/allowed", "/tmp/allowed", true},
		{"subdirectory", "/tmp/allowed/sub", "/tmp/allowed", true},
		{"not a prefix", "/tmp/other", "/tmp/allowed", false},
		{"partial match", "/tmp/allowedother", "/tmp/allowed", false},
		{"slash only matches itself", "/tmp", "/", false},
		{"slash exact", "/", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := hasPathPrefix(tt.path, tt.prefix)
			if result != tt.expected {
				t.Errorf("hasPathPrefix(%s, %s) = %v, expected %v", tt.path, tt.prefix, result, tt.expected)
			}
		})
	}
}

// TestValidateDeleteTargetThroughSymlink verifies a protected file reached
// through a directory link under an allowed root is blocked, while the link
// itself may still be removed.
func TestValidateDeleteTargetThroughSymlink(t *testing.T) {
	tmpDir := t.TempDir()
	allowedDir := filepath.Join(tmpDir, "allowed")
	secretDir := filepath.Join(tmpDir, "secret")

	for _, d := range []string{allowedDir, secretDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(secretDir, "keys"), []byte("k"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	link := filepath.Join(allowedDir, "link")
	if err := os.Symlink(secretDir, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	validator := NewValidator([]string{allowedDir}, []string{secretDir})

	if err := validator.ValidateDeleteTarget(filepath.Join(link, "keys")); !errors.Is(err, ErrProtectedPath) {
		t.Errorf("file behind link: got %v, expected %v", err, ErrProtectedPath)
	}
	if err := validator.ValidateDeleteTarget(link); err != nil {
		t.Errorf("link itself should be deletable, got %v", err)
	}
}

func TestResolveParent(t *testing.T) {
	tmpDir := t.TempDir()
	realDir := filepath.Join(tmpDir, "real")
	if err := os.Mkdir(realDir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	alias := filepath.Join(tmpDir, "alias")
	if err := os.Symlink(realDir, alias); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	base, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	got, ok := ResolveParent(filepath.Join(alias, "f"))
	if !ok || got != filepath.Join(base, "real", "f") {
		t.Errorf("ResolveParent = %q, %v", got, ok)
	}

	got, ok = ResolveParent(alias)
	if !ok || got != filepath.Join(base, "alias") {
		t.Errorf("ResolveParent(link) = %q, %v; the link itself must not resolve", got, ok)
	}

	if _, ok := ResolveParent(filepath.Join(tmpDir, "missing", "f")); ok {
		t.Error("missing parent should not resolve")
	}
}
