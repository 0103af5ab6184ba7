// Package widget holds the state shared by list-editing form widgets:
// item selection driven by click modifiers, the drag start threshold,
// the confirmation prompt and the translated message catalog.
//
// Widgets are plain state machines. Each method corresponds to one user
// input event and leaves the widget in a consistent, serialized state.
package widget
