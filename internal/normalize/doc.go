// Package normalize maps CMP-native category vocabularies into the
// canonical purpose taxonomy and resolves cookies declared under more
// than one category.
package normalize
