/*

Package custody is a multi-party custody-transfer workflow for uniquely
identified assets.

An issuer creates an Asset for an owning organization.  Traders of the
Organization propose transfers; the organization's risk officer and
operations officer must both approve a TransferProposal before the
trader can escalate it to a TransferRequest; only the custodian named
in the request can execute it, producing a Transfer, or deny it,
producing a TransferDenial.

Every record is immutable.  A mutation archives the current version
and creates a successor with a new identity, in a single commit to
the ledger in package db.  Each version names its signatories and
observers, and only those parties can query it; once a version is
archived, parties not named on its successor lose sight of the asset.

Lifecycle of one workflow instance:

	Proposed --approve(risk)--> PartiallyApproved --approve(ops)--> FullyApproved
	FullyApproved --request--> Requested
	Requested --execute--> Completed (Transfer + new Asset)
	Requested --deny-----> Denied (TransferDenial)

*/

package custody
