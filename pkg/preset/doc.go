// Package preset stores prompt presets and renders them into the system and
// user messages of a generation call.
//
// Templates use {{macro}} placeholders (see Vars). Unknown macros are left in
// place so authored text containing braces survives rendering.
package preset
