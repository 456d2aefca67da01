package octree

import "math"

// RGBColor is a normalized color triple used for map visualization markers.
type RGBColor struct {
	R, G, B float64
}

// HSVToRGB converts a hue/saturation/value triple (each in [0,1], hue
// wrapping) into RGB.
func HSVToRGB(h, s, v float64) RGBColor {
	h -= math.Floor(h)
	h *= 6
	i := int(math.Floor(h))
	f := h - float64(i)
	m := v * (1 - s)
	n := v * (1 - s*f)
	p := v * (1 - s*(1-f))

	switch i {
	case 0, 6:
		return RGBColor{R: v, G: p, B: m}
	case 1:
		return RGBColor{R: n, G: v, B: m}
	case 2:
		return RGBColor{R: m, G: v, B: p}
	case 3:
		return RGBColor{R: m, G: n, B: v}
	case 4:
		return RGBColor{R: p, G: m, B: v}
	case 5:
		return RGBColor{R: v, G: m, B: n}
	default:
		return RGBColor{R: 1, G: 0.5, B: 0.5}
	}
}

// RoughnessColor maps the node's roughness to a grayscale marker color, red
// when no roughness has been integrated.
func (n *Node) RoughnessColor() RGBColor {
	if !n.IsRoughSet() {
		return RGBColor{R: 1}
	}
	r := float64(n.rough)
	return RGBColor{R: r, G: r, B: r}
}

// AgentColor derives a marker color from the node's agent tag and its height
// standardized into [minZ,maxZ]. Each agent gets a base hue; height shifts
// hue and drives a saturation/value ramp so vertical structure stays legible.
// When adjustAgent is set, tags are shifted down by one so the first real
// agent shares the merged-map scheme of tag 0.
func (n *Node) AgentColor(atZ, minZ, maxZ float64, adjustAgent bool) RGBColor {
	agent := n.agent
	if adjustAgent && agent > 0 {
		agent--
	}
	z := math.Min(math.Max((atZ-minZ)/(maxZ-minZ), 0), 1)

	agent %= 6
	var h, vb float64
	sb := 0.2
	switch agent {
	case 0: // black to green, used for merged maps
		h = 0.47
		sb = 0.1
		vb = 0.0
	case 1: // dark blue
		h = 0.666
		vb = 0.55
	case 2: // purple
		h = 0.833
		vb = 0.44
	case 3: // green
		h = 0.422
		vb = 0.53
	case 4: // yellow
		h = 0.133
		vb = 0.48
	case 5: // red
		h = 0.0
		vb = 0.55
	}

	sm := 1.0 - sb
	vm := 1.0 - vb

	// center the hue shift around the middle of the height range
	h += (z - 0.5) * (1.0 / 6.0)

	var s, v float64
	if agent == 0 {
		s = sb + (1-z)*sm
		v = z * z
	} else {
		split := 1.0 / 3.0
		switch {
		case z < split:
			s = sb + (z/split)*sm
			v = vb
		case z < split*2:
			s = 1.0
			v = vb + ((z-split)/split)*vm
		default:
			s = sb + (1-(z-2*split)/split)*sm
			v = 1.0
		}
	}

	return HSVToRGB(h, s, v)
}
