/*
Package regex applies owner-scoped find/replace scripts to generated text.

Scripts are authored as JavaScript-style patterns, either bare or in
/pattern/flags literal form, and compiled with regexp2 in ECMAScript mode.
Broken patterns go through a repair chain that ends in a literal match, so a
malformed script is skipped at worst and never fails the pipeline.
*/
package regex
