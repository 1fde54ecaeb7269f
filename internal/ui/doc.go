// Package ui renders profiles in the terminal.
//
// [RenderProfile] and [RenderMerged] draw static lipgloss cards and are used by the CLI's
// show and merge commands.
//
// The (view) [Model] is a bubbletea program styled as a cassette:
//  1. [SideA] : the stored self profile
//  2. [SideB] : the imported partner profile
//  3. [MergedSide] : the comparison of both
//
// Profiles are loaded once on Init through a [Source] and reloaded on demand. The model
// only reads profiles; it never builds or stores one.
//
// Keyboard navigation uses f/space to flip, m for the merged view, r to reload and q to
// quit, with contextual help displayed via charmbracelet/bubbles/help.
package ui
