package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/aletheia-lab/mnemosyne/pkg/cli/config"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
)

func TestTuning_Configure(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "full tuning file",
			content: `
[retrieval]
max_hops = 2
distance_ceiling = 0.6

[gateway]
requests_per_second = 10.0
burst = 20
max_failures = 3
cool_down = "10s"
half_open_probes = 1
`,
			wantErr: nil,
		},
		{
			name: "partial file keeps defaults for the rest",
			content: `
[retrieval]
max_hops = 2
`,
			wantErr: nil,
		},
		{
			name:    "tuning file not found",
			content: "", // Won't create the file
			wantErr: config.ErrConfigNotFound,
		},
		{
			name: "negative max_hops",
			content: `
[retrieval]
max_hops = -1
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "distance ceiling beyond the cosine range",
			content: `
[retrieval]
distance_ceiling = 2.5
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "negative rate limit",
			content: `
[gateway]
requests_per_second = -1.0
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "zero cool down",
			content: `
[gateway]
cool_down = "0s"
`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "tuning.toml")

			// Only create file if content is not empty
			if tt.content != "" {
				err := os.WriteFile(configPath, []byte(tt.content), 0644)
				gt.NoError(t, err).Required()
			}

			cfg := config.NewTuningForTest(configPath)
			_, _, err := cfg.Configure()

			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err)
		})
	}
}

func TestTuning_ConfigureValues(t *testing.T) {
	content := `
[retrieval]
max_hops = 2
distance_ceiling = 0.6

[gateway]
requests_per_second = 10.0
cool_down = "10s"
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.toml")
	err := os.WriteFile(configPath, []byte(content), 0644)
	gt.NoError(t, err).Required()

	cfg := config.NewTuningForTest(configPath)
	retrieval, guard, err := cfg.Configure()
	gt.NoError(t, err).Required()

	gt.Number(t, retrieval.MaxHops).Equal(2)
	gt.Number(t, retrieval.DistanceCeiling).Equal(0.6)
	gt.Number(t, guard.RequestsPerSecond).Equal(10.0)
	gt.Value(t, guard.CoolDown).Equal(10 * time.Second)

	// Fields the file omits keep their defaults
	gt.Number(t, guard.MaxFailures).Equal(uint32(5))
}

func TestTuning_ConfigureWithoutFile(t *testing.T) {
	cfg := config.NewTuningForTest("")
	retrieval, _, err := cfg.Configure()
	gt.NoError(t, err).Required()

	gt.Number(t, retrieval.MaxHops).Equal(model.DefaultMaxHops)
	gt.Number(t, retrieval.DistanceCeiling).Equal(model.DefaultDistanceCeiling)
}
