package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPath(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		root     string
		in       string
		want     string
	}{
		{"pc lowercases and converts slashes", PC, "Data", `Textures\Hero.PNG`, "Data/textures/hero.png"},
		{"pc keeps absolute root case", PC, "/Users/Me/Data", `Textures\Hero.PNG`, "/Users/Me/Data/textures/hero.png"},
		{"pc root prefix in other case", PC, "/Users/Me/Data", "/users/me/data/Music/Theme.ogg", "/Users/Me/Data/music/theme.ogg"},
		{"linux root prefix is case sensitive", Linux, "Data", "data/Theme.ogg", "Data/data/Theme.ogg"},
		{"android keeps root case", Android, `C:\Games\Assets`, `Sprites\Run.PNG`, "C:/Games/Assets/run.png"},
		{"pc without root", PC, "", `Sounds\Boom.wav`, "sounds/boom.wav"},
		{"linux preserves case", Linux, "Data", `Textures\Hero.PNG`, "Data/Textures/Hero.PNG"},
		{"ios preserves case", IOS, "assets", "Fonts/Main.fnt", "assets/Fonts/Main.fnt"},
		{"android drops directories", Android, "assets", `Sprites\Player\Run.png`, "assets/run.png"},
		{"bada drops directories", Bada, "", "levels/One.lvl", "one.lvl"},
		{"leading slash", PC, "data", "/music/theme.ogg", "data/music/theme.ogg"},
		{"root already present", PC, "data", "data/music/theme.ogg", "data/music/theme.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.platform, tt.root)
			assert.Equal(t, tt.want, r.SystemPath(tt.in))
		})
	}
}

func TestSystemPathIdempotent(t *testing.T) {
	inputs := []string{
		`Textures\Hero.PNG`,
		"MixedCase/Dir/File.TXT",
		`\leading\back\slash.bin`,
		"plain.dat",
		`Deep\Nested/Mixed\Separators/File.Ext`,
		"",
	}

	for _, p := range []Platform{PC, Linux, Android, IOS, Bada} {
		for _, root := range []string{"", "data", `Game\Data`, "/opt/proteus", "/Users/Me/Data"} {
			r := NewResolver(p, root)
			for _, in := range inputs {
				once := r.SystemPath(in)
				assert.Equal(t, once, r.SystemPath(once), "platform=%s root=%q in=%q", p, root, in)
			}
		}
	}
}

func TestParse(t *testing.T) {
	for _, p := range []Platform{PC, Linux, Android, IOS, Bada} {
		got, err := Parse(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := Parse("Android")
	require.NoError(t, err)
	assert.Equal(t, Android, got)

	_, err = Parse("dreamcast")
	assert.Error(t, err)
	assert.Equal(t, "platform(9)", Platform(9).String())
}
