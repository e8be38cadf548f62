// Package worldbook selects and orders character lore entries for a turn.
package worldbook
