package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// and how to interpret results.

func describeStripDryRun() string {
	return `Plans the removal of a debug/instrumentation module from JavaScript and TypeScript sources without modifying any file.

USE WHEN:
- Previewing what a strip run would change before committing to it
- Auditing how widely a module like debug is used across a codebase
- Reviewing individual edits (deleted statements, removed declarators, replaced expressions)
- Verifying a tree is already clean (zero edits means nothing to do)

INTERPRETING RESULTS:
- Edit kinds: delete_statement removes a whole line, remove_declarator trims one binding out of a declaration, replace_expression substitutes undefined for a value read
- removal_ratio: fraction of a file's bytes the rewrite removes
- Files are ranked by removal ratio, heaviest users of the module first
- changed_files = 0: no reference to the target module was found
- skipped: files that could not be parsed or exceeded the size limit, with reasons

METRICS RETURNED:
- Per-file: path, language, edit list with byte ranges and lines, bytes removed, removal ratio
- Summary: total edits by kind, bytes removed, mean and P90 removal ratios
- Skipped files with reasons

No file is written. Use strip_apply to perform the rewrite.`
}

func describeStripApply() string {
	return `Removes all usage of a debug/instrumentation module from JavaScript and TypeScript sources, rewriting files in place.

USE WHEN:
- Stripping a module like debug from a tree before publishing or vendoring
- Cleaning instrumentation out of generated or copied sources
- Applying a rewrite previewed earlier with strip_dry_run

INTERPRETING RESULTS:
- files_changed: files rewritten on disk; everything else is byte-identical
- Edit kinds: delete_statement, remove_declarator, replace_expression
- hash_before / hash_after fingerprint each rewritten file
- Running the tool again on its own output reports zero edits
- skipped: files left untouched because they could not be parsed or exceeded the size limit

METRICS RETURNED:
- Per-file: path, edit list, bytes removed, removal ratio, content hashes
- Summary: total edits by kind, bytes removed, mean and P90 removal ratios
- Skipped files with reasons

Rewrites are destructive. Preview with strip_dry_run first or run under version control.`
}

func describeScanTargets() string {
	return `Lists the JavaScript and TypeScript files a strip run would consider, after excludes and .gitignore filtering.

USE WHEN:
- Checking which files a strip or dry run will touch before running one
- Debugging why an expected file is not being rewritten
- Verifying exclude patterns and gitignore handling behave as configured

INTERPRETING RESULTS:
- files: every path a strip run would analyze, sorted
- A file missing from the list is excluded by configuration, gitignore, or extension
- by_language counts show the javascript / typescript / tsx split
- Explicitly named files bypass exclude rules; directories are filtered

METRICS RETURNED:
- files: full target list
- total: target count
- by_language: file counts per detected language`
}
