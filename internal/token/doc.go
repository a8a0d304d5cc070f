// Package token splits source text into whitespace-delimited tokens.
// Invariants:
//   - A token is a maximal run of bytes other than ASCII space, \t, \n, \v, \f and \r;
//     punctuation stays attached ("foo;" != "foo") and Unicode spaces such as NBSP are token bytes.
//   - No case folding, stemming or length filtering is applied.
//   - Tokens are produced lazily, line by line, in source order. A Scanner is single-use.
package token
