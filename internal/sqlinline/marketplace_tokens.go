package sqlinline

const QSelectMarketplaceTokens = `--sql a5a790f2-0bc7-49be-83b5-3fa4b1d47381
select access_token, refresh_token, expires_at
from marketplace_tokens
where user_id = $1::text
limit 1;
`

const QUpsertMarketplaceTokens = `--sql eb3d66c3-37cd-4c0b-8abc-4565456b0089
insert into marketplace_tokens(user_id, access_token, refresh_token, expires_at, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::timestamptz, now(), now())
on conflict (user_id) do update set
    access_token = excluded.access_token,
    refresh_token = excluded.refresh_token,
    expires_at = excluded.expires_at,
    updated_at = now();
`
