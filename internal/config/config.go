// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Scene   SceneConfig   `yaml:"scene"`
	Model   ModelConfig   `yaml:"model"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds the hosting container settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	FPSLimit   int    `yaml:"fps_limit"`
	Background uint32 `yaml:"background"` // page colour shown through the transparent scene
	Headless   bool   `yaml:"headless"`
	MaxFrames  int    `yaml:"max_frames"` // 0 runs until quit
}

// SceneConfig holds the presentation constants of the character scene.
type SceneConfig struct {
	Camera      CameraConfig      `yaml:"camera"`
	Ambient     LightConfig       `yaml:"ambient_light"`
	Directional DirectionalConfig `yaml:"directional_light"`
	Ground      GroundConfig      `yaml:"ground"`
	Controls    ControlsConfig    `yaml:"controls"`
	ClearColor  [4]float32        `yaml:"clear_color"`
}

// CameraConfig holds perspective camera settings.
type CameraConfig struct {
	FOV      float32    `yaml:"fov"` // vertical, degrees
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
	Position [3]float32 `yaml:"position"`
}

// LightConfig holds a light colour and intensity.
type LightConfig struct {
	Color     uint32  `yaml:"color"`
	Intensity float32 `yaml:"intensity"`
}

// DirectionalConfig holds directional light settings.
type DirectionalConfig struct {
	LightConfig      `yaml:",inline"`
	Position         [3]float32 `yaml:"position"` // normalised on use
	CastShadow       bool       `yaml:"cast_shadow"`
	ShadowResolution int32      `yaml:"shadow_resolution"`
}

// GroundConfig holds the shadow-receiving ground plane settings.
type GroundConfig struct {
	Size  float32 `yaml:"size"`
	Color uint32  `yaml:"color"`
	Y     float32 `yaml:"y"`
}

// ControlsConfig holds orbit controller settings.
type ControlsConfig struct {
	EnableDamping bool       `yaml:"enable_damping"`
	DampingFactor float32    `yaml:"damping_factor"`
	Target        [3]float32 `yaml:"target"`
	RotateSpeed   float32    `yaml:"rotate_speed"`
	ZoomSpeed     float32    `yaml:"zoom_speed"`
	MinDistance   float32    `yaml:"min_distance"`
	MaxDistance   float32    `yaml:"max_distance"`
}

// ModelConfig holds the character asset settings.
type ModelConfig struct {
	URL      string        `yaml:"url"`
	Position [3]float32    `yaml:"position"`
	Scale    float32       `yaml:"scale"`
	Timeout  time.Duration `yaml:"timeout"` // 0 waits forever
	Cache    bool          `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// DefaultModelURL is the animated robot shown on the home page.
const DefaultModelURL = "https://raw.githubusercontent.com/mrdoob/three.js/dev/examples/models/gltf/RobotExpressive/RobotExpressive.glb"

// Default returns a Config with the home page's presentation values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "Portfolio",
			Width:      1280,
			Height:     720,
			VSync:      true,
			Background: 0xffffff,
		},
		Scene: SceneConfig{
			Camera: CameraConfig{
				FOV:      75,
				Near:     0.1,
				Far:      1000,
				Position: [3]float32{0, 1.5, 3},
			},
			Ambient: LightConfig{Color: 0xffffff, Intensity: 0.7},
			Directional: DirectionalConfig{
				LightConfig:      LightConfig{Color: 0xffffff, Intensity: 1.5},
				Position:         [3]float32{5, 10, 7},
				CastShadow:       true,
				ShadowResolution: 2048,
			},
			Ground: GroundConfig{
				Size:  100,
				Color: 0xcccccc,
				Y:     -1.5,
			},
			Controls: ControlsConfig{
				EnableDamping: true,
				DampingFactor: 0.05,
				Target:        [3]float32{0, 0.8, 0},
				RotateSpeed:   1,
				ZoomSpeed:     1,
				MinDistance:   0,
				MaxDistance:   0, // unbounded
			},
			ClearColor: [4]float32{0, 0, 0, 0},
		},
		Model: ModelConfig{
			URL:      DefaultModelURL,
			Position: [3]float32{0, -1, 0},
			Scale:    1,
			Cache:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
