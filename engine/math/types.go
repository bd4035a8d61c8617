package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

/**
 * @brief A bounding volume shared by a sphere and an axis-aligned box.
 */
type Bounds struct {
	/** @brief The center of both the sphere and the box. */
	Origin Vec3
	/** @brief The radius of the bounding sphere. */
	Radius float32
	/** @brief The half-widths of the axis-aligned box. */
	Extents Vec3
}
