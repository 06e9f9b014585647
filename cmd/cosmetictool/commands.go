package main

import (
	"context"
	"flag"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/assets"
	"github.com/Faultbox/midgard-wearables/internal/engine/debug"
	"github.com/Faultbox/midgard-wearables/internal/engine/instance"
	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/internal/engine/render/soft"
	"github.com/Faultbox/midgard-wearables/internal/engine/skinmask"
	"github.com/Faultbox/midgard-wearables/internal/engine/wearables"
	"github.com/Faultbox/midgard-wearables/internal/loadout"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/math"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// rootsFlag collects repeated -assets flags.
type rootsFlag []string

func (r *rootsFlag) String() string     { return strings.Join(*r, ",") }
func (r *rootsFlag) Set(v string) error { *r = append(*r, v); return nil }

func (r rootsFlag) orDefault() []string {
	if len(r) == 0 {
		return []string{"assets"}
	}
	return r
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var roots rootsFlag
	fs.Var(&roots, "assets", "Asset root (repeatable, later roots win)")
	fs.Parse(args)

	ids, err := assets.NewLibrary(roots.orDefault()...).List()
	if err != nil {
		return err
	}
	pattern := fs.Arg(0)
	count := 0
	for _, id := range ids {
		if pattern != "" {
			if ok, _ := path.Match(pattern, id); !ok {
				continue
			}
		}
		fmt.Println(id)
		count++
	}
	fmt.Printf("\n%d cosmetics\n", count)
	return nil
}

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var roots rootsFlag
	fs.Var(&roots, "assets", "Asset root (repeatable, later roots win)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: cosmetictool inspect [-assets dir]... <id>")
	}
	c, err := assets.NewLibrary(roots.orDefault()...).Get(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	describe(c)
	return nil
}

func describe(c *assets.Cosmetic) {
	m := c.Model
	fmt.Printf("Cosmetic:    %s\n", c.ID)
	fmt.Printf("Directory:   %s\n", c.Dir)
	fmt.Printf("Texture:     %dx%d (declared %dx%d)\n",
		c.Image.Bounds().Dx(), c.Image.Bounds().Dy(), m.TextureWidth, m.TextureHeight)
	fmt.Printf("Translucent: %v\n", m.Translucent)
	fmt.Printf("Skin mask:   %d parts\n", len(m.SkinMask))
	for _, b := range m.Exclusions {
		fmt.Printf("Exclusion:   %v - %v\n", b.Min, b.Max)
	}

	fmt.Println()
	fmt.Println("Bones:")
	depth := make(map[*model.Bone]int)
	m.Walk(func(bone, parent *model.Bone) {
		if parent != nil {
			depth[bone] = depth[parent] + 1
		}
		flags := ""
		if bone.Physics {
			flags = " [physics]"
		}
		fmt.Printf("  %s%s  cubes=%d pivot=%v%s\n",
			strings.Repeat("  ", depth[bone]), bone.Name, len(bone.Cubes), bone.Pivot, flags)
		names := make([]string, 0, len(bone.Locators))
		for name := range bone.Locators {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s  @%s %v\n", strings.Repeat("  ", depth[bone]), name, bone.Locators[name])
		}
	})

	fmt.Println()
	fmt.Printf("Animations: %d\n", m.AnimationCount())
	fmt.Println("Triggers:")
	for _, e := range m.Events {
		fmt.Printf("  %s\n", formatEvent(e))
	}
}

func formatEvent(e *formats.Event) string {
	var sb strings.Builder
	for i := e; i != nil; i = i.OnComplete {
		if i != e {
			sb.WriteString(" -> ")
		}
		loops := "forever"
		if i.Loops > 0 {
			loops = fmt.Sprintf("x%d", i.Loops)
		}
		fmt.Fprintf(&sb, "%s:%s %s target=%s", i.Type, i.Name, loops, i.Target)
		if i.Probability < 1 {
			fmt.Fprintf(&sb, " p=%.2f", i.Probability)
		}
		if i.Skips > 0 {
			fmt.Fprintf(&sb, " skips=%d", i.Skips)
		}
		if i.Priority != 0 {
			fmt.Fprintf(&sb, " priority=%d", i.Priority)
		}
	}
	return sb.String()
}

// session is a worn set composed on the headless backend.
type session struct {
	loadout  *loadout.Loadout
	backend  *soft.Backend
	manager  *wearables.Manager
	equipped *loadout.Equipped
}

func openSession(file string, opts wearables.Options) (*session, error) {
	l, err := loadout.Load(file)
	if err != nil {
		return nil, err
	}
	roots := make([]string, 0, len(l.Roots))
	for _, r := range l.Roots {
		if !filepath.IsAbs(r) {
			r = filepath.Join(filepath.Dir(file), r)
		}
		roots = append(roots, r)
	}
	if len(roots) == 0 {
		roots = []string{filepath.Join(filepath.Dir(file), "assets")}
	}

	s := &session{loadout: l, backend: soft.New()}
	s.equipped, err = loadout.Equip(context.Background(), assets.NewLibrary(roots...), s.backend, l.Worn)
	if err != nil {
		return nil, err
	}
	s.manager = wearables.NewManager(s.backend, opts)
	if err := s.manager.UpdateState(s.equipped.Cosmetics); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	s.manager.Close()
	s.equipped.Release()
}

func outputFlag(fs *flag.FlagSet, def string) *string {
	return fs.String("o", def, "Output file")
}

func cmdMask(args []string) error {
	fs := flag.NewFlagSet("mask", flag.ExitOnError)
	out := outputFlag(fs, "skin_mask.webp")
	size := fs.Int("size", 64, "Skin texture edge in pixels")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: cosmetictool mask [-o file.webp] <loadout.yaml>")
	}

	s, err := openSession(fs.Arg(0), wearables.Options{})
	if err != nil {
		return err
	}
	defer s.Close()

	mask := s.manager.SkinMask()
	hidden := 0
	for p := skinmask.PartHead; p <= skinmask.PartLeftPants; p++ {
		if a, ok := mask[p]; ok {
			n := 0
			for _, v := range a.Pix {
				if v != 0 {
					n++
				}
			}
			fmt.Printf("  %-10s %d texels hidden\n", p, n)
			hidden += n
		}
	}
	if err := debug.WriteWebP(*out, mask.Image(*size, *size)); err != nil {
		return err
	}
	fmt.Printf("%d texels hidden, written to %s\n", hidden, *out)
	return nil
}

func cmdAtlas(args []string) error {
	fs := flag.NewFlagSet("atlas", flag.ExitOnError)
	out := outputFlag(fs, "atlas.webp")
	maxSize := fs.Int("max", 2048, "Largest atlas edge (0 = unlimited)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: cosmetictool atlas [-o file.webp] <loadout.yaml>")
	}

	s, err := openSession(fs.Arg(0), wearables.Options{AtlasMaxSize: *maxSize})
	if err != nil {
		return err
	}
	defer s.Close()

	atlas := s.manager.Atlas()
	if atlas == nil {
		fmt.Println("no atlas: fewer than two distinct translucent textures worn")
		return nil
	}
	for _, c := range s.equipped.Cosmetics {
		if r, ok := atlas.Region(c.Texture.ID()); ok {
			fmt.Printf("  %-8s %-24s u=[%.3f, %.3f] v=[%.3f, %.3f]\n", c.Slot, c.ID, r.U0, r.U1, r.V0, r.V1)
		}
	}
	tex, _ := s.backend.Texture(atlas.Texture.ID())
	if err := debug.WriteWebP(*out, tex.Image()); err != nil {
		return err
	}
	fmt.Printf("%dx%d atlas of %d textures written to %s\n", atlas.Width, atlas.Height, atlas.Len(), *out)
	return nil
}

func cmdClip(args []string) error {
	fs := flag.NewFlagSet("clip", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: cosmetictool clip <loadout.yaml>")
	}

	s, err := openSession(fs.Arg(0), wearables.Options{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := molang.Vars{}
	s.manager.Update(0, ctx)
	boxes := s.loadout.Boxes()

	fmt.Printf("%-8s %-24s %6s %6s\n", "SLOT", "COSMETIC", "FACES", "KEPT")
	for _, c := range s.equipped.Cosmetics {
		inst, ok := s.manager.Instance(c.Slot)
		if !ok {
			continue
		}
		excl := append([]math.Box(nil), boxes...)
		for _, o := range s.equipped.Cosmetics {
			if o.Slot != c.Slot {
				excl = append(excl, o.Model.Exclusions...)
			}
		}
		all := len(inst.Quads(nil, nil, math.FullBright))
		kept := len(inst.Quads(nil, excl, math.FullBright))
		fmt.Printf("%-8s %-24s %6d %6d\n", c.Slot, c.ID, all, kept)
	}

	var target soft.Target
	s.manager.Render(&target, mgl32.Ident4(), boxes, math.FullBright)
	fmt.Printf("\n%d quads in %d batches\n", target.QuadCount(), len(target.Batches))
	if b, ok := s.manager.Bounds(ctx); ok {
		fmt.Printf("bounds %v - %v\n", b.Min, b.Max)
	}
	return nil
}

func cmdPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	seconds := fs.Float64("t", 5, "Seconds to simulate")
	fps := fs.Int("fps", 20, "Steps per second")
	trigger := fs.String("trigger", "", "Event to fire after equipping (e.g. emote)")
	seed := fs.Uint64("seed", 1, "Random seed (0 = random)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: cosmetictool play [-t seconds] <loadout.yaml>")
	}
	if *fps <= 0 {
		return fmt.Errorf("fps must be positive")
	}

	s, err := openSession(fs.Arg(0), wearables.Options{Seed: *seed})
	if err != nil {
		return err
	}
	defer s.Close()

	var now float32
	show := func(ev wearables.Event) {
		fmt.Printf("%7.2fs  %-8s %#v\n", now, ev.Slot, ev.Event)
	}
	s.manager.CollectEvents(show)
	if *trigger != "" {
		s.manager.Trigger(formats.ParseEventType(*trigger))
		s.manager.CollectEvents(show)
	}

	dt := 1 / float32(*fps)
	steps := int(*seconds * float64(*fps))
	ctx := molang.Vars{}
	for i := 0; i < steps; i++ {
		now += dt
		ctx[instance.QueryLifeTime] = now
		s.manager.Update(dt, ctx)
		s.manager.CollectEvents(show)
	}
	return nil
}
