package value

// slugNames gives the exact sibling-column suffixes the reconciler's NewCol
// strategy uses when quarantining a mismatched value: str, i32, i64, vec_f32,
// vecstring, vecdyn, object, none, and so on following the same
// vec_<scalar> convention as vec_f32.
var slugNames = map[TypeTag]string{
	Unknown:   "unknown",
	None:      "none",
	Bool:      "bool",
	I16:       "i16",
	I32:       "i32",
	I64:       "i64",
	F32:       "f32",
	F64:       "f64",
	String:    "str",
	VecString: "vecstring",
	VecI32:    "vec_i32",
	VecI64:    "vec_i64",
	VecF32:    "vec_f32",
	VecF64:    "vec_f64",
	VecDyn:    "vecdyn",
	Object:    "object",
}

// Slug returns the sibling-column suffix for v's tag.
func (v Value) Slug() string {
	return slugNames[v.tag]
}
