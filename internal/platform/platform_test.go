package platform

import (
	"path/filepath"
	"testing"
)

// fakeEnv returns a getenv func backed by a map; unset keys return "".
func fakeEnv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDetect_Windows(t *testing.T) {
	caps := detect("windows", fakeEnv(map[string]string{
		"APPDATA": `C:\Users\dev\AppData\Roaming`,
	}))
	if !caps.PreferWrapper {
		t.Error("windows should prefer the wrapper tool")
	}
	want := filepath.Join(`C:\Users\dev\AppData\Roaming`, "elizadesk")
	if caps.DataDir != want {
		t.Errorf("DataDir = %q, want %q", caps.DataDir, want)
	}
	if caps.ConfigDir != caps.DataDir {
		t.Errorf("ConfigDir = %q, want same as DataDir", caps.ConfigDir)
	}
}

func TestDetect_WindowsWithoutAppData(t *testing.T) {
	caps := detect("windows", fakeEnv(nil))
	if caps.DataDir != "" {
		t.Errorf("DataDir = %q, want empty when APPDATA unset", caps.DataDir)
	}
	if caps.LogPath() != "" {
		t.Errorf("LogPath = %q, want empty", caps.LogPath())
	}
}

func TestDetect_Darwin(t *testing.T) {
	caps := detect("darwin", fakeEnv(map[string]string{"HOME": "/Users/dev"}))
	want := "/Users/dev/Library/Application Support/elizadesk"
	if caps.DataDir != want {
		t.Errorf("DataDir = %q, want %q", caps.DataDir, want)
	}
	if caps.PreferWrapper {
		t.Error("darwin should not prefer the wrapper tool")
	}
}

func TestDetect_LinuxXDG(t *testing.T) {
	caps := detect("linux", fakeEnv(map[string]string{
		"HOME":            "/home/dev",
		"XDG_DATA_HOME":   "/home/dev/xdg-data",
		"XDG_CONFIG_HOME": "/home/dev/xdg-config",
	}))
	if caps.DataDir != "/home/dev/xdg-data/elizadesk" {
		t.Errorf("DataDir = %q", caps.DataDir)
	}
	if caps.ConfigDir != "/home/dev/xdg-config/elizadesk" {
		t.Errorf("ConfigDir = %q", caps.ConfigDir)
	}
}

func TestDetect_LinuxDefaults(t *testing.T) {
	caps := detect("linux", fakeEnv(map[string]string{"HOME": "/home/dev"}))
	if caps.DataDir != "/home/dev/.local/share/elizadesk" {
		t.Errorf("DataDir = %q", caps.DataDir)
	}
	if caps.ConfigDir != "/home/dev/.config/elizadesk" {
		t.Errorf("ConfigDir = %q", caps.ConfigDir)
	}
	if caps.NotifyFatal == nil {
		t.Error("NotifyFatal should always be set")
	}
}

func TestHomeDir_Precedence(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"HOME wins", map[string]string{"HOME": "/home/dev", "USERPROFILE": `C:\Users\dev`}, "/home/dev"},
		{"HOMEDRIVE+HOMEPATH", map[string]string{"HOMEDRIVE": "C:", "HOMEPATH": `\Users\dev`}, filepath.Join("C:", `\Users\dev`)},
		{"USERPROFILE fallback", map[string]string{"USERPROFILE": `C:\Users\dev`}, filepath.Clean(`C:\Users\dev`)},
		{"whitespace ignored", map[string]string{"HOME": "  ", "USERPROFILE": "/u/dev"}, "/u/dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := homeDir(fakeEnv(tt.vars))
			if err != nil {
				t.Fatalf("homeDir: %v", err)
			}
			if got != tt.want {
				t.Errorf("homeDir = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	caps := Capabilities{DataDir: "/data/elizadesk", ConfigDir: "/cfg/elizadesk"}
	if got := caps.LogPath(); got != "/data/elizadesk/elizadesk.log" {
		t.Errorf("LogPath = %q", got)
	}
	if got := caps.ServerLogPath(); got != "/data/elizadesk/server.log" {
		t.Errorf("ServerLogPath = %q", got)
	}
	if got := caps.ConfigPath(); got != "/cfg/elizadesk/config.toml" {
		t.Errorf("ConfigPath = %q", got)
	}
}
