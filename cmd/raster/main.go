// raster - Terminal 3D Model Viewer
// View GLTF/GLB models in your terminal, rendered by the CPU rasterizer
// in pkg/raster.
//
// Controls:
//
//	Mouse drag  - Rotate model (yaw/pitch)
//	Scroll      - Zoom in/out
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Q/E         - Roll left/right (Q rolls left, E rolls right)
//	Space       - Apply random impulse
//	R           - Reset rotation
//	T           - Toggle texture on/off
//	X           - Toggle wireframe mode
//	Z           - Toggle depth-buffer visualization
//	?           - Toggle HUD overlay (FPS, filename, poly count, mode status)
//	+/-         - Adjust zoom
//	Esc         - Quit
package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/taigrr/raster/internal/rlog"
	"github.com/taigrr/raster/pkg/math3d"
	"github.com/taigrr/raster/pkg/mesh"
	"github.com/taigrr/raster/pkg/raster"
	"github.com/taigrr/raster/pkg/texture"
)

var (
	texturePath string
	targetFPS   int
	bgColor     string
	modeFlag    string
	verbose     bool
)

func main() {
	root := newRootCmd()
	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raster <model.gltf|model.glb>",
		Short: "Terminal 3D model viewer",
		Long: "raster renders an indexed triangle mesh loaded from a glTF/GLB file\n" +
			"into the terminal using a software rasterizer, with live rotation,\n" +
			"zoom, and render-mode toggles.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				rlog.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			}
			mode, err := parseMode(modeFlag)
			if err != nil {
				return err
			}
			return run(args[0], mode)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&texturePath, "texture", "", "path to texture image (PNG/JPG), overrides any embedded texture")
	flags.IntVar(&targetFPS, "fps", 60, "target frame rate")
	flags.StringVar(&bgColor, "bg", "30,30,40", "background color as R,G,B")
	flags.StringVar(&modeFlag, "mode", "", "initial render mode: color|textured|wireframe|depth (default: textured if a texture is available)")
	flags.BoolVar(&verbose, "verbose", false, "log rasterizer diagnostics (discarded triangles, mesh construction) to stderr")
	return cmd
}

func parseMode(s string) (raster.Mode, error) {
	switch strings.ToLower(s) {
	case "":
		return raster.ModeTextured, nil
	case "color":
		return raster.ModeColor, nil
	case "textured":
		return raster.ModeTextured, nil
	case "wireframe":
		return raster.ModeWireframe, nil
	case "depth":
		return raster.ModeDepth, nil
	default:
		return 0, fmt.Errorf("unknown --mode %q (want color|textured|wireframe|depth)", s)
	}
}

// rotationAxis tracks position and velocity for one rotation axis, decaying
// velocity toward zero with a critically damped spring so mouse drags and
// key impulses coast to a stop instead of snapping.
type rotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64
}

func newRotationAxis(fps int) rotationAxis {
	return rotationAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

func (a *rotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

type rotationState struct {
	Pitch, Yaw, Roll rotationAxis
	fps              int
}

func newRotationState(fps int) *rotationState {
	return &rotationState{
		Pitch: newRotationAxis(fps),
		Yaw:   newRotationAxis(fps),
		Roll:  newRotationAxis(fps),
		fps:   fps,
	}
}

func (r *rotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *rotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *rotationState) Reset() {
	r.Pitch = newRotationAxis(r.fps)
	r.Yaw = newRotationAxis(r.fps)
	r.Roll = newRotationAxis(r.fps)
}

// viewState holds interactive toggles; it never mutates the rasterizer's
// fixed light direction, only which of the four Modes is active.
type viewState struct {
	TextureEnabled bool
	Wireframe      bool
	DepthView      bool
	ShowHUD        bool
}

func newViewState(initial raster.Mode) *viewState {
	v := &viewState{ShowHUD: true}
	switch initial {
	case raster.ModeTextured:
		v.TextureEnabled = true
	case raster.ModeWireframe:
		v.Wireframe = true
	case raster.ModeDepth:
		v.DepthView = true
	}
	return v
}

// Mode resolves the current toggles into the Mode Rasterize expects.
// Wireframe and depth view each take priority over textured/flat shading
// since they replace the fill step entirely.
func (v *viewState) Mode() raster.Mode {
	switch {
	case v.Wireframe:
		return raster.ModeWireframe
	case v.DepthView:
		return raster.ModeDepth
	case v.TextureEnabled:
		return raster.ModeTextured
	default:
		return raster.ModeColor
	}
}

func (v *viewState) modeLabel() string {
	switch {
	case v.Wireframe:
		return "wireframe"
	case v.DepthView:
		return "depth"
	case v.TextureEnabled:
		return "textured"
	default:
		return "color"
	}
}

// hud renders an overlay with model info and controls directly to the
// terminal via ANSI escapes, outside the rasterizer's pixel buffer.
type hud struct {
	filename  string
	polyCount int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

func newHUD(filename string, polyCount int) *hud {
	return &hud{filename: filename, polyCount: polyCount, fpsTime: time.Now()}
}

func (h *hud) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

func (h *hud) Render(width, height int, v *viewState) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)

	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)

	if !v.ShowHUD {
		return
	}

	fmt.Print(fmt.Sprintf("%s%s%s %.0f FPS %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, reset))

	titleStr := fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.filename, reset)
	titleCol := max((width-len(h.filename)-2)/2, 1)
	fmt.Print(moveTo(1, titleCol) + titleStr)

	polyStr := fmt.Sprintf("%s%s%s %d polys %s", bgBlack, fgCyan, bold, h.polyCount, reset)
	fmt.Print(moveTo(1, max(width-12, 1)) + polyStr)

	modeStr := fmt.Sprintf("%s%s mode: %s %s", bgBlack, fgWhite, v.modeLabel(), reset)
	fmt.Print(moveTo(height, 1) + modeStr)
}

func run(modelPath string, initialMode raster.Mode) error {
	var bgR, bgG, bgB uint8 = 30, 30, 40
	fmt.Sscanf(bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	termRenderer := raster.NewTerminalRenderer(term, width, height)
	fbWidth, fbHeight := termRenderer.FramebufferSize()
	fb := raster.NewFramebuffer(fbWidth, fbHeight)
	rasterizer := raster.New()

	aspect := float64(fbWidth) / float64(fbHeight)
	const fovY = math.Pi / 3
	const nearPlane, farPlane = 0.1, 100.0
	projection := math3d.Perspective(fovY, aspect, nearPlane, farPlane)

	cameraZ := 5.0
	eye := math3d.V3(0, 0, cameraZ)
	view := math3d.LookAt(eye, math3d.Zero3(), math3d.V3(0, 1, 0))

	var tex *texture.Texture
	if texturePath != "" {
		tex, err = texture.Load(texturePath)
		if err != nil {
			fmt.Printf("Warning: could not load texture: %v\n", err)
		}
	}

	ext := strings.ToLower(filepath.Ext(modelPath))
	var m *mesh.Mesh
	switch ext {
	case ".glb", ".gltf":
		var embedded image.Image
		m, embedded, err = mesh.LoadGLTFWithTexture(modelPath)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		if tex == nil && embedded != nil {
			tex = texture.FromImage(embedded)
			fmt.Printf("Using embedded texture: %dx%d\n", embedded.Bounds().Dx(), embedded.Bounds().Dy())
		}
	default:
		return fmt.Errorf("unsupported format %q (use .gltf or .glb)", ext)
	}

	if tex == nil {
		tex = texture.NewChecker(64, 64, 8, texture.Pack(200, 200, 200, 255), texture.Pack(100, 100, 100, 255))
	}

	fmt.Printf("Loaded: %s (%d triangles)\n", filepath.Base(modelPath), m.TriangleCount())

	h := newHUD(filepath.Base(modelPath), m.TriangleCount())

	boundsMin, boundsMax := m.Bounds()
	center := boundsMin.Add(boundsMax).Scale(0.5)
	size := boundsMax.Sub(boundsMin)
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	base := math3d.Identity4()
	if maxDim > 0 {
		scale := 2.0 / maxDim
		base = math3d.Translate(center.Scale(-1)).Mul(math3d.ScaleUniform(scale))
	}

	rotation := newRotationState(targetFPS)
	v := newViewState(initialMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	inputTorque := struct{ pitch, yaw, roll float64 }{}
	const torqueStrength = 3.0

	var mouseDown bool
	var lastMouseX, lastMouseY int

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				termRenderer = raster.NewTerminalRenderer(term, width, height)
				fbWidth, fbHeight = termRenderer.FramebufferSize()
				fb = raster.NewFramebuffer(fbWidth, fbHeight)
				aspect = float64(fbWidth) / float64(fbHeight)
				projection = math3d.Perspective(fovY, aspect, nearPlane, farPlane)

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape"), ev.MatchString("ctrl+c"):
					cancel()
					return
				case ev.MatchString("q"):
					inputTorque.roll = -torqueStrength
				case ev.MatchString("r"):
					rotation.Reset()
					cameraZ = 5.0
					eye = math3d.V3(0, 0, cameraZ)
					view = math3d.LookAt(eye, math3d.Zero3(), math3d.V3(0, 1, 0))
				case ev.MatchString("w", "up"):
					inputTorque.pitch = -torqueStrength
				case ev.MatchString("s", "down"):
					inputTorque.pitch = torqueStrength
				case ev.MatchString("a", "left"):
					inputTorque.yaw = -torqueStrength
				case ev.MatchString("d", "right"):
					inputTorque.yaw = torqueStrength
				case ev.MatchString("e"):
					inputTorque.roll = torqueStrength
				case ev.MatchString("space"):
					rotation.ApplyImpulse(
						(rand.Float64()-0.5)*1.5,
						(rand.Float64()-0.5)*1.5,
						(rand.Float64()-0.5)*1.5,
					)
				case ev.MatchString("+", "="):
					cameraZ = math.Max(1, cameraZ-0.5)
					eye = math3d.V3(0, 0, cameraZ)
					view = math3d.LookAt(eye, math3d.Zero3(), math3d.V3(0, 1, 0))
				case ev.MatchString("-", "_"):
					cameraZ = math.Min(20, cameraZ+0.5)
					eye = math3d.V3(0, 0, cameraZ)
					view = math3d.LookAt(eye, math3d.Zero3(), math3d.V3(0, 1, 0))
				case ev.MatchString("t"):
					v.TextureEnabled = !v.TextureEnabled
				case ev.MatchString("x"):
					v.Wireframe = !v.Wireframe
				case ev.MatchString("z"):
					v.DepthView = !v.DepthView
				case ev.MatchString("?"), ev.MatchString("shift+/"):
					v.ShowHUD = !v.ShowHUD
				}

			case uv.KeyReleaseEvent:
				switch {
				case ev.MatchString("w"), ev.MatchString("up"), ev.MatchString("s"), ev.MatchString("down"):
					inputTorque.pitch = 0
				case ev.MatchString("a"), ev.MatchString("left"), ev.MatchString("d"), ev.MatchString("right"):
					inputTorque.yaw = 0
				case ev.MatchString("q"), ev.MatchString("e"):
					inputTorque.roll = 0
				}

			case uv.MouseClickEvent:
				mouseDown = true
				lastMouseX, lastMouseY = ev.X, ev.Y

			case uv.MouseReleaseEvent:
				mouseDown = false

			case uv.MouseMotionEvent:
				if mouseDown {
					dx := ev.X - lastMouseX
					dy := ev.Y - lastMouseY
					rotation.ApplyImpulse(float64(dy)*0.03, float64(dx)*0.03, 0)
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					cameraZ = math.Max(1, cameraZ-0.5)
				case uv.MouseWheelDown:
					cameraZ = math.Min(20, cameraZ+0.5)
				}
				eye = math3d.V3(0, 0, cameraZ)
				view = math3d.LookAt(eye, math3d.Zero3(), math3d.V3(0, 1, 0))
			}
		}
	}()

	targetDuration := time.Second / time.Duration(targetFPS)
	lastFrame := time.Now()
	bg := texture.Pack(bgR, bgG, bgB, 255)

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now
		if dt > 0.1 {
			dt = 0.1
		}

		rotation.ApplyImpulse(
			inputTorque.pitch*dt,
			inputTorque.yaw*dt,
			inputTorque.roll*dt,
		)
		inputTorque.pitch *= 0.9
		inputTorque.yaw *= 0.9
		inputTorque.roll *= 0.9
		rotation.Update()

		spin := math3d.InitRotation(rotation.Roll.Position, rotation.Pitch.Position, rotation.Yaw.Position)
		viewSpace := m.Transform(base.Mul(spin).Mul(view))

		fb.Clear(bg, 0)
		rasterizer.Rasterize(fb, viewSpace, projection, tex, v.Mode())

		termRenderer.Render(fb)
		if err := termRenderer.Flush(); err != nil {
			cleanup()
			return fmt.Errorf("flush: %w", err)
		}

		h.UpdateFPS()
		h.Render(width, height, v)

		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
