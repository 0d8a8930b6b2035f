package cloth

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tomz197/fabric/internal/physics"
)

// Surface is the renderable form of the cloth: one vertex and one normal
// per particle (same index convention) and the static triangle list.
type Surface struct {
	Width      int
	Height     int
	Generation uint64

	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3

	// Indices is shared with the topology and must not be modified.
	Indices []uint32
}

// Surface returns a copy of the latest extracted surface. The index buffer
// is shared, the vertex and normal buffers are not.
func (s *Simulation) Surface() Surface {
	var out Surface
	s.Extract(&out)
	return out
}

// Extract copies the latest surface into dst, reusing its buffers.
func (s *Simulation) Extract(dst *Surface) {
	src := &s.surface
	dst.Width = src.Width
	dst.Height = src.Height
	dst.Generation = src.Generation
	dst.Indices = src.Indices
	dst.Vertices = append(dst.Vertices[:0], src.Vertices...)
	dst.Normals = append(dst.Normals[:0], src.Normals...)
}

// extract snapshots particle positions into the internal surface.
func (s *Simulation) extract() {
	t := s.topo
	out := &s.surface
	out.Width = t.Width
	out.Height = t.Height
	out.Generation = s.generation
	out.Indices = t.Indices

	n := len(t.Particles)
	if cap(out.Vertices) < n {
		out.Vertices = make([]mgl32.Vec3, n)
	}
	out.Vertices = out.Vertices[:n]
	for x := 0; x < t.Width; x++ {
		for y := 0; y < t.Height; y++ {
			i := Index(x, y, t.Height)
			out.Vertices[i] = t.Particles[i].Pos
		}
	}

	out.Normals = ComputeNormals(out.Vertices, out.Indices, out.Normals)
}

// ComputeNormals returns area-weighted vertex normals for the triangle list,
// reusing dst when it has capacity. Vertices touching only degenerate
// triangles get a zero normal.
func ComputeNormals(vertices []mgl32.Vec3, indices []uint32, dst []mgl32.Vec3) []mgl32.Vec3 {
	if cap(dst) < len(vertices) {
		dst = make([]mgl32.Vec3, len(vertices))
	}
	dst = dst[:len(vertices)]
	clear(dst)

	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		// cross product length is twice the triangle area
		face := vertices[b].Sub(vertices[a]).Cross(vertices[c].Sub(vertices[a]))
		dst[a] = dst[a].Add(face)
		dst[b] = dst[b].Add(face)
		dst[c] = dst[c].Add(face)
	}

	for i := range dst {
		dst[i] = physics.SafeNormalize(dst[i])
	}
	return dst
}
